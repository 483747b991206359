package engine

import (
	"os"
	"testing"

	logger "github.com/veriflow/sentra/api/logging"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "sentra-test-logs")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(logDir)

	logger.InitLogger(logDir)
	os.Exit(m.Run())
}
