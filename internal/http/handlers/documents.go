package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/extract"
	"github.com/yungbote/docchat-backend/internal/http/response"
)

// 25 MB upload ceiling
const maxUploadBytes = 25 << 20

type DocumentHandler struct{}

func NewDocumentHandler() *DocumentHandler {
	return &DocumentHandler{}
}

type extractReq struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // base64
}

// POST /api/v4/documents/extract
// Accepts either a multipart "file" field or a JSON body with base64 data.
func (h *DocumentHandler) Extract(c *gin.Context) {
	name, mime, data, err := readDocument(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(data) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("empty document"))
		return
	}
	if len(data) > maxUploadBytes {
		response.RespondError(c, http.StatusBadRequest, "document_too_large",
			fmt.Errorf("document exceeds %d bytes", maxUploadBytes))
		return
	}

	result, err := extract.FromBytes(name, mime, data)
	if err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "extract_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"text":      result.Text,
		"pageCount": result.PageCount,
		"fileName":  name,
	})
}

func readDocument(c *gin.Context) (name, mime string, data []byte, err error) {
	if file, fErr := c.FormFile("file"); fErr == nil {
		opened, oErr := file.Open()
		if oErr != nil {
			return "", "", nil, oErr
		}
		defer opened.Close()
		data, err = io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
		if err != nil {
			return "", "", nil, err
		}
		return file.Filename, file.Header.Get("Content-Type"), data, nil
	}

	var req extractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", "", nil, err
	}
	decoded, dErr := base64.StdEncoding.DecodeString(req.Data)
	if dErr != nil {
		return "", "", nil, fmt.Errorf("invalid base64 data: %w", dErr)
	}
	return req.FileName, req.ContentType, decoded, nil
}
