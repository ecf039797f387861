package errors

import "errors"

// ErrDuplicateEvent 同一学生同一天同一类型的签到已存在（数据库唯一约束冲突）
var ErrDuplicateEvent = errors.New("当日该类型签到已存在")
