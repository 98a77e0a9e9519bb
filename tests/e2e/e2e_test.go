package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseURL = os.Getenv("E2E_BASE_URL")

func requireServer(t *testing.T) {
	t.Helper()
	if baseURL == "" {
		t.Skip("E2E_BASE_URL not set; skipping end-to-end tests")
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectionFullWorkflow(t *testing.T) {
	requireServer(t)

	client := &http.Client{Timeout: 30 * time.Second}

	// 1. Register
	email := fmt.Sprintf("e2e_%d@example.com", time.Now().UnixNano())
	password := "password123"

	registerBody, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	req, _ := http.NewRequest("POST", baseURL+"/api/auth/register", bytes.NewBuffer(registerBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	req, _ = http.NewRequest("POST", baseURL+"/api/auth/login", bytes.NewBuffer(loginBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	body, _ := io.ReadAll(resp.Body)
	json.Unmarshal(body, &loginResp)
	resp.Body.Close()

	authToken := loginResp.Data.Tokens.AccessToken
	require.NotEmpty(t, authToken)

	// 3. Run a detection through the proxy
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="image"; filename="e2e.png"`)
	partHeader.Set("Content-Type", "image/png")
	part, _ := writer.CreatePart(partHeader)
	part.Write(pngBytes(t))
	writer.Close()

	req, _ = http.NewRequest("POST", baseURL+"/api/proxy/detect", &buf)
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "detection requires the inference service to be up")

	var detectResp struct {
		Data map[string]interface{} `json:"data"`
	}
	body, _ = io.ReadAll(resp.Body)
	json.Unmarshal(body, &detectResp)
	resp.Body.Close()

	analysisID, _ := detectResp.Data["analysis_id"].(string)
	require.NotEmpty(t, analysisID)

	// 4. History lists the new analysis
	req, _ = http.NewRequest("GET", baseURL+"/api/analysis/history", nil)
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var historyResp struct {
		Count int `json:"count"`
		Data  []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	body, _ = io.ReadAll(resp.Body)
	json.Unmarshal(body, &historyResp)
	resp.Body.Close()

	require.Equal(t, 1, historyResp.Count)
	assert.Equal(t, analysisID, historyResp.Data[0].ID)

	// 5. Detail carries the derived image URL
	req, _ = http.NewRequest("GET", fmt.Sprintf("%s/api/analysis/%s", baseURL, analysisID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var detailResp struct {
		Data struct {
			ID              string  `json:"id"`
			Result          string  `json:"result"`
			Confidence      float64 `json:"confidence"`
			OriginalFileURL string  `json:"original_file_url"`
		} `json:"data"`
	}
	body, _ = io.ReadAll(resp.Body)
	json.Unmarshal(body, &detailResp)
	resp.Body.Close()

	assert.Equal(t, analysisID, detailResp.Data.ID)
	assert.Contains(t, []string{"Real", "Fake"}, detailResp.Data.Result)
	require.NotEmpty(t, detailResp.Data.OriginalFileURL)

	// 6. The stashed image is served back
	req, _ = http.NewRequest("GET", baseURL+detailResp.Data.OriginalFileURL, nil)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 7. Download the PDF report
	req, _ = http.NewRequest("GET", fmt.Sprintf("%s/api/analysis/%s/download", baseURL, analysisID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	report, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, bytes.HasPrefix(report, []byte("%PDF")))

	// 8. Delete the analysis
	req, _ = http.NewRequest("DELETE", fmt.Sprintf("%s/api/analysis/%s", baseURL, analysisID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 9. Detail now 404s
	req, _ = http.NewRequest("GET", fmt.Sprintf("%s/api/analysis/%s", baseURL, analysisID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	requireServer(t)

	client := &http.Client{Timeout: 30 * time.Second}

	req, _ := http.NewRequest("GET", baseURL+"/api/analysis/history", nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
