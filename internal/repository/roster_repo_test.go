package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVRoster_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.csv")
	content := "Name,Roll\nAlice,1\n  Bob  ,2\n\n,3\nCarol\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	students, err := NewCSVRosterRepo(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	want := []string{"Alice", "Bob", "Carol"}
	if len(students) != len(want) {
		t.Fatalf("期望 %v，实际 %v", want, students)
	}
	for i := range want {
		if students[i] != want[i] {
			t.Errorf("第 %d 个期望 %q，实际 %q", i, want[i], students[i])
		}
	}
}

func TestCSVRoster_MissingFile(t *testing.T) {
	students, err := NewCSVRosterRepo(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	if err != nil {
		t.Fatalf("名单不存在不应报错: %v", err)
	}
	if students == nil || len(students) != 0 {
		t.Errorf("期望空列表，实际 %v", students)
	}
}

func TestCSVRoster_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.csv")
	if err := os.WriteFile(path, []byte("Name\n"), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	students, err := NewCSVRosterRepo(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if len(students) != 0 {
		t.Errorf("仅表头时期望空列表，实际 %v", students)
	}
}
