package dailykey

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// DateLayout 参与 HMAC 计算的日期格式
const DateLayout = "2006-01-02"

// Deriver 每日密钥生成器
// 密钥 = hex(HMAC-SHA256(salt, 参考时区下的 YYYY-MM-DD))，同一天内稳定，跨天自动轮换
type Deriver struct {
	salt []byte
	loc  *time.Location
	now  func() time.Time
}

// NewDeriver 创建每日密钥生成器
func NewDeriver(salt string, loc *time.Location) *Deriver {
	return &Deriver{
		salt: []byte(salt),
		loc:  loc,
		now:  time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (d *Deriver) WithClock(now func() time.Time) *Deriver {
	d.now = now
	return d
}

// Today 参考时区下的当前时间
func (d *Deriver) Today() time.Time {
	return d.now().In(d.loc)
}

// Derive 计算指定日期的密钥
func (d *Deriver) Derive(day time.Time) string {
	mac := hmac.New(sha256.New, d.salt)
	mac.Write([]byte(day.In(d.loc).Format(DateLayout)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Current 当日密钥
func (d *Deriver) Current() string {
	return d.Derive(d.Today())
}

// Valid 以常量时间比较出示的密钥与当日密钥
func (d *Deriver) Valid(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(d.Current())) == 1
}
