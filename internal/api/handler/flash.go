package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// addFlash 写入一条一次性提示，下一次页面渲染时展示
func addFlash(c *gin.Context, message string) {
	s := sessions.Default(c)
	s.AddFlash(message)
	if err := s.Save(); err != nil {
		c.Error(fmt.Errorf("保存 flash 失败: %w", err))
	}
}

// popFlashes 取出并清空全部提示
func popFlashes(c *gin.Context) []string {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.Save(); err != nil {
		c.Error(fmt.Errorf("保存 flash 失败: %w", err))
	}

	messages := make([]string, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(string); ok {
			messages = append(messages, m)
		}
	}
	return messages
}

// renderError 渲染面向用户的错误页
func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{"Message": message})
}

// renderInternalError 渲染 500 错误页
func renderInternalError(c *gin.Context, err error) {
	c.Error(err)
	renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
