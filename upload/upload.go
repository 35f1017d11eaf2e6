// Package upload turns an uploaded logo file into an inline data URL that can
// be stored in UserEdits.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidFileType 非图片文件，在读取前即被拒绝。
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrFileRead 读取文件失败，本次上传中止。
	ErrFileRead = errors.New("file read failed")
)

// MaxBytes limits a single upload.
const MaxBytes = 8 << 20

// decodable 是预览与导出能够解码的图片类型；其余 image/*（如 SVG）在上传时即被拒绝。
var decodable = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// DataURL reads an image upload and returns it as a base64 data URL.
// contentType may be empty, in which case it is derived from name.
func DataURL(name, contentType string, r io.Reader) (string, error) {
	declared := declaredType(name, contentType)
	if !isImage(declared) {
		return "", fmt.Errorf("%w: %s (%s)", ErrInvalidFileType, name, declared)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFileRead, name, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s 为空", ErrFileRead, name)
	}
	if len(data) > MaxBytes {
		return "", fmt.Errorf("%w: %s 超过 %d 字节", ErrFileRead, name, MaxBytes)
	}
	// 扩展名可能与内容不符，以内容嗅探结果为准
	sniffed := http.DetectContentType(data)
	if !isImage(sniffed) {
		return "", fmt.Errorf("%w: %s 的内容不是可用的图片 (%s)", ErrInvalidFileType, name, sniffed)
	}
	mediaType := baseType(sniffed)
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ReadFile is DataURL over a file on disk.
func ReadFile(path string) (string, error) {
	name := filepath.Base(path)
	if !isImage(declaredType(name, "")) {
		return "", fmt.Errorf("%w: %s", ErrInvalidFileType, name)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	defer f.Close()
	return DataURL(name, "", f)
}

// UserMessage 返回面向用户的提示文本。
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFileType):
		return "يرجى اختيار ملف صورة صالح."
	case errors.Is(err, ErrFileRead):
		return "حدث خطأ أثناء قراءة الملف."
	default:
		return ""
	}
}

func declaredType(name, contentType string) string {
	if contentType != "" {
		return baseType(contentType)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if t := baseType(mime.TypeByExtension(ext)); t != "" {
		return t
	}
	for t, e := range decodable {
		if e == ext || (t == "image/jpeg" && ext == ".jpeg") {
			return t
		}
	}
	return ""
}

func baseType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func isImage(contentType string) bool {
	_, ok := decodable[baseType(contentType)]
	return ok
}
