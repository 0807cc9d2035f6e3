package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carelistings/internal/storage"
)

const assetKeyPrefix = "training-images/"
const assetMaxBytes = 5 * 1024 * 1024

// AssetHandler 负责培训课程图片的上传与访问。
type AssetHandler struct {
	Storage   *storage.Client
	Logger    *slog.Logger
	ClamdAddr string
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(storageClient *storage.Client, logger *slog.Logger, clamdAddr string) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetHandler{
		Storage:   storageClient,
		Logger:    logger,
		ClamdAddr: clamdAddr,
	}
}

// UploadAsset 处理受保护的图片上传，写入前先做病毒扫描。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > assetMaxBytes {
		BadRequest(c, "file too large")
		return
	}

	if h.ClamdAddr != "" {
		clamdClient := clamd.NewClamd(h.ClamdAddr)

		fileReader, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file")
			return
		}

		abortChan := make(chan bool)
		scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
		fileReader.Close()
		if err != nil {
			h.Logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		defer close(abortChan)

		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				BadRequest(c, "malicious file detected")
				return
			}
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("%s%s.png", assetKeyPrefix, uuid.NewString())
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := h.Storage.UploadFile(c.Request.Context(), objectKey, fileReader, file.Size, contentType); err != nil {
		h.Logger.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	viewURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, time.Hour)
	if err != nil {
		h.Logger.Error("presign uploaded file", slog.String("error", err.Error()))
		Internal(c, "failed to generate view url")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey, "url": viewURL})
}

// ListAssets 列出已上传的课程图片，最新的在前。
func (h *AssetHandler) ListAssets(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "60")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 60
	}
	if limit > 200 {
		limit = 200
	}

	objects, err := h.Storage.ListObjects(c.Request.Context(), assetKeyPrefix, limit)
	if err != nil {
		h.Logger.Error("list assets", slog.String("error", err.Error()))
		Internal(c, "failed to list assets")
		return
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	items := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		url, err := h.Storage.GeneratePresignedURL(c.Request.Context(), obj.Key, 10*time.Minute)
		if err != nil {
			h.Logger.Error("generate asset url", slog.String("objectKey", obj.Key), slog.String("error", err.Error()))
			continue
		}
		items = append(items, gin.H{
			"objectKey":    obj.Key,
			"previewUrl":   url,
			"size":         obj.Size,
			"lastModified": obj.LastModified,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DeleteAsset 删除指定图片。对象不存在时同样返回成功（幂等）。
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if !validAssetKey(key) {
		BadRequest(c, "invalid asset key")
		return
	}

	if err := h.Storage.DeleteObject(c.Request.Context(), key); err != nil {
		h.Logger.Error("delete asset", slog.String("objectKey", key), slog.String("error", err.Error()))
		Internal(c, "failed to delete asset")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAssetURL 为已上传的图片生成限时访问链接。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if !validAssetKey(key) {
		BadRequest(c, "invalid asset key")
		return
	}

	viewURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), key, time.Hour)
	if err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "asset not found")
			return
		}
		h.Logger.Error("presign asset", slog.String("error", err.Error()))
		Internal(c, "failed to generate view url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": viewURL})
}

// validAssetKey 只放行本服务前缀下、不含路径穿越的对象键。
func validAssetKey(key string) bool {
	if key == "" || !strings.HasPrefix(key, assetKeyPrefix) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "//") {
		return false
	}
	return true
}
