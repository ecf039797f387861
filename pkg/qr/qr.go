package qr

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// CheckinURL 拼接带每日密钥的签到链接
func CheckinURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/?key=" + url.QueryEscape(key)
}

// EncodePNG 将链接编码为 PNG 二维码
func EncodePNG(link string, size int) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	return png, nil
}

// WriteDaily 将当日签到二维码写入 dir/secure_qr_YYYYMMDD.png，返回文件路径
func WriteDaily(dir, link string, day time.Time, size int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建二维码目录失败: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("secure_qr_%s.png", day.Format("20060102")))
	if err := qrcode.WriteFile(link, qrcode.Medium, size, path); err != nil {
		return "", fmt.Errorf("写入二维码文件失败: %w", err)
	}
	return path, nil
}
