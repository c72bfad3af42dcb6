package utils

import "go.uber.org/zap"

// SafeGo 拦截 panic 的 goroutine
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				Component("goroutine").Error("panic recovered", zap.Any("panic", err), zap.Stack("stack"))
			}
		}()
		fn()
	}()
}
