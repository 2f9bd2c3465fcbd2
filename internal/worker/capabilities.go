package worker

import (
	"context"
	"time"
)

// Clock 抽象墙钟，便于测试注入固定时间模拟过期。
type Clock interface {
	Now() time.Time
}

// SystemClock 使用真实系统时间。
type SystemClock struct{}

// Now 返回当前系统时间。
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc 将函数适配为 Clock。
type ClockFunc func() time.Time

// Now 实现 Clock。
func (f ClockFunc) Now() time.Time {
	return f()
}

// ConnectivityProbe 报告宿主当前的连通性信号，降级响应的 offline 字段由此而来。
type ConnectivityProbe interface {
	Online() bool
}

// AlwaysOnline 是缺省探针，始终报告在线。
type AlwaysOnline struct{}

// Online 恒为 true。
func (AlwaysOnline) Online() bool {
	return true
}

// ProbeFunc 将函数适配为 ConnectivityProbe。
type ProbeFunc func() bool

// Online 实现 ConnectivityProbe。
func (f ProbeFunc) Online() bool {
	return f()
}

// Messenger 是面向受控页面的状态通道。当前核心不会调用它，
// 仅作为保留扩展点注入；后台同步钩子同理。
type Messenger interface {
	Post(ctx context.Context, event string, detail map[string]any) error
}

// NoopMessenger 丢弃所有消息。
type NoopMessenger struct{}

// Post 恒成功。
func (NoopMessenger) Post(context.Context, string, map[string]any) error {
	return nil
}
