package handler

import (
	"mime/multipart"
	"net/http"
	"sync"
	"sync/atomic"

	"beadshop/internal/pkg/uploader"
	"beadshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// maxBatchFiles 一次最多传 9 张（售后凭证按九宫格取的上限）
const maxBatchFiles = 9

// UploadFile 上传图片到 OSS（支持批量），返回按入参顺序的 URL 列表
// @Summary 上传文件
// @Tags common
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files"
// @Success 200 {object} response.Response{data=[]string} "URLs"
// @Router /upload [post]
func UploadFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No files uploaded")
		return
	}
	if len(files) > maxBatchFiles {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Too many files in one request")
		return
	}

	if uploader.GlobalUploader == nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Uploader not initialized")
		return
	}

	urls := make([]string, len(files))

	var wg sync.WaitGroup
	var errOnce sync.Once
	var failed atomic.Bool
	var uploadErr error

	// 并发上传，限制 5 路
	sem := make(chan struct{}, 5)

	for i, file := range files {
		wg.Add(1)
		go func(index int, f *multipart.FileHeader) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			// 已有失败就不再发起后续上传
			if failed.Load() {
				return
			}

			url, err := uploader.GlobalUploader.UploadFile(f)
			if err != nil {
				errOnce.Do(func() {
					uploadErr = err
				})
				failed.Store(true)
				return
			}

			// 按索引写入保证结果顺序和入参一致
			urls[index] = url
		}(i, file)
	}

	wg.Wait()

	if failed.Load() {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Upload failed: "+uploadErr.Error())
		return
	}

	response.Success(c, urls)
}
