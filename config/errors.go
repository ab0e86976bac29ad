package config

import "github.com/ceyewan/aegis/xerrors"

// 错误定义
var (
	// ErrWatchKeyEmpty 监听的配置 key 为空
	ErrWatchKeyEmpty = xerrors.New("config: watch key is empty")
)
