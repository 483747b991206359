// api/db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	encryptionKey = []byte(viper.GetString("redis.encryptionKey"))
	if len(encryptionKey) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// CacheWorkspacePolicies stores the full policy set of a workspace as one
// unit. Policy definitions are encrypted at rest in Redis.
func CacheWorkspacePolicies(ctx context.Context, workspaceID string, policies []model.Policy) error {
	policiesJSON, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("failed to marshal policies: %w", err)
	}

	encryptedPolicies, err := encrypt(policiesJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt policies: %w", err)
	}

	key := fmt.Sprintf("policies:workspace:%s", workspaceID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, base64.StdEncoding.EncodeToString(encryptedPolicies), defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache policies: %w", err)
	}

	logger.Debug("Workspace policies cached successfully",
		zap.String("workspaceID", workspaceID),
		zap.Int("count", len(policies)))
	return nil
}

// GetCachedWorkspacePolicies returns the cached policy set for a workspace,
// or (nil, false, nil) on a cache miss.
func GetCachedWorkspacePolicies(ctx context.Context, workspaceID string) ([]model.Policy, bool, error) {
	key := fmt.Sprintf("policies:workspace:%s", workspaceID)
	encryptedPoliciesStr, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Workspace policies not found in cache", zap.String("workspaceID", workspaceID))
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to get policies from cache: %w", err)
	}

	encryptedPolicies, err := base64.StdEncoding.DecodeString(encryptedPoliciesStr)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode policies: %w", err)
	}

	policiesJSON, err := decrypt(encryptedPolicies)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decrypt policies: %w", err)
	}

	var policies []model.Policy
	err = json.Unmarshal(policiesJSON, &policies)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal policies: %w", err)
	}

	logger.Debug("Workspace policies retrieved from cache", zap.String("workspaceID", workspaceID))
	return policies, true, nil
}

func DeleteCachedWorkspacePolicies(ctx context.Context, workspaceID string) error {
	key := fmt.Sprintf("policies:workspace:%s", workspaceID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete policies from cache: %w", err)
	}
	logger.Debug("Workspace policies deleted from cache", zap.String("workspaceID", workspaceID))
	return nil
}

func CacheSubject(ctx context.Context, subject *pdp_model.SubjectSnapshot) error {
	subjectJSON, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("failed to marshal subject: %w", err)
	}

	key := fmt.Sprintf("subject:%s", subject.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, subjectJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache subject: %w", err)
	}

	logger.Debug("Subject cached successfully", zap.String("subjectID", subject.ID))
	return nil
}

func GetCachedSubject(ctx context.Context, subjectID string) (*pdp_model.SubjectSnapshot, error) {
	key := fmt.Sprintf("subject:%s", subjectID)
	subjectJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Subject not found in cache", zap.String("subjectID", subjectID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get subject from cache: %w", err)
	}

	var subject pdp_model.SubjectSnapshot
	err = json.Unmarshal([]byte(subjectJSON), &subject)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal subject: %w", err)
	}

	logger.Debug("Subject retrieved from cache", zap.String("subjectID", subjectID))
	return &subject, nil
}

func CacheResource(ctx context.Context, resource *pdp_model.ResourceSnapshot) error {
	resourceJSON, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}

	key := fmt.Sprintf("resource:%s", resource.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, resourceJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache resource: %w", err)
	}

	logger.Debug("Resource cached successfully", zap.String("resourceID", resource.ID))
	return nil
}

func GetCachedResource(ctx context.Context, resourceID string) (*pdp_model.ResourceSnapshot, error) {
	key := fmt.Sprintf("resource:%s", resourceID)
	resourceJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Resource not found in cache", zap.String("resourceID", resourceID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get resource from cache: %w", err)
	}

	var resource pdp_model.ResourceSnapshot
	err = json.Unmarshal([]byte(resourceJSON), &resource)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}

	logger.Debug("Resource retrieved from cache", zap.String("resourceID", resourceID))
	return &resource, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
