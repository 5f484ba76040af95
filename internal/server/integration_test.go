package server_test

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunningServer 假设 zerochain-ui serve 已经在运行
// 地址从 ZEROCHAIN_API_URL 读取，默认 http://localhost:8080
func TestRunningServer(t *testing.T) {
	baseURL := os.Getenv("ZEROCHAIN_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		t.Skip("Skipping integration test: server not running? " + err.Error())
		return
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(baseURL + "/api/v1/system")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Code int `json:"code"`
		Data struct {
			Name   string `json:"name"`
			Height uint64 `json:"height"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body.Code)
	assert.NotEmpty(t, body.Data.Name)
}
