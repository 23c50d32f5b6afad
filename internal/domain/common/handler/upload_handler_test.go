package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"beadshop/internal/pkg/uploader"
	"beadshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader 按文件名返回 URL，可配置在第 N 次调用后全部失败
type fakeUploader struct {
	calls   atomic.Int32
	failAll bool
}

func (f *fakeUploader) UploadFile(file *multipart.FileHeader) (string, error) {
	f.calls.Add(1)
	if f.failAll {
		return "", errors.New("oss unreachable")
	}
	return "https://cdn.example.com/" + file.Filename, nil
}

func multipartRequest(t *testing.T, fileCount int) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for i := 0; i < fileCount; i++ {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("img-%d.jpg", i))
		require.NoError(t, err)
		part.Write([]byte("fake image bytes"))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func performUpload(t *testing.T, u uploader.Uploader, fileCount int) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	prev := uploader.GlobalUploader
	uploader.GlobalUploader = u
	t.Cleanup(func() { uploader.GlobalUploader = prev })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", UploadFile)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, fileCount))

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestUploadFile(t *testing.T) {
	t.Run("Batch upload keeps input order", func(t *testing.T) {
		w, body := performUpload(t, &fakeUploader{}, 3)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, response.CodeSuccess, body.Code)

		urls, ok := body.Data.([]interface{})
		require.True(t, ok)
		require.Len(t, urls, 3)
		for i, u := range urls {
			assert.Equal(t, fmt.Sprintf("https://cdn.example.com/img-%d.jpg", i), u)
		}
	})

	// 7 个文件并发走 5 路信号量，全部失败时各协程同时摸错误状态，
	// 竞态检测器下也必须干净
	t.Run("Concurrent failures reported once", func(t *testing.T) {
		fake := &fakeUploader{failAll: true}
		w, body := performUpload(t, fake, 7)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, response.ErrServerInternal, body.Code)
		assert.Contains(t, body.Message, "oss unreachable")
	})

	t.Run("Too many files rejected", func(t *testing.T) {
		w, body := performUpload(t, &fakeUploader{}, maxBatchFiles+1)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrInvalidParam, body.Code)
	})

	t.Run("Empty form rejected", func(t *testing.T) {
		w, _ := performUpload(t, &fakeUploader{}, 0)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Uninitialized uploader", func(t *testing.T) {
		w, body := performUpload(t, nil, 1)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, response.ErrServerInternal, body.Code)
	})
}
