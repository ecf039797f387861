package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// RosterRepository 学生名单数据访问接口
type RosterRepository interface {
	// Load 读取全部学生姓名，名单不存在时返回空列表
	Load(ctx context.Context) ([]string, error)
}

// csvRosterRepo 名单文件：首行为表头，第一列为姓名
type csvRosterRepo struct {
	path string
}

// NewCSVRosterRepo 创建基于 CSV 文件的 RosterRepository
func NewCSVRosterRepo(path string) RosterRepository {
	return &csvRosterRepo{path: path}
}

func (r *csvRosterRepo) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("打开名单文件失败: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	students := []string{}
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析名单文件失败: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) == 0 {
			continue
		}
		if name := strings.TrimSpace(row[0]); name != "" {
			students = append(students, name)
		}
	}
	return students, nil
}
