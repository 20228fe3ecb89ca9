package capability

// Capability 表示一个可选协作方：要么可用并持有实例，要么不可用并给出原因。
type Capability[T any] struct {
	value     T
	available bool
	reason    string
}

// Available 包装一个已初始化的协作方。
func Available[T any](value T) Capability[T] {
	return Capability[T]{value: value, available: true}
}

// Unavailable 记录协作方不可用的原因。
func Unavailable[T any](reason string) Capability[T] {
	return Capability[T]{reason: reason}
}

// FromResult 将构造函数的 (T, error) 结果转换为能力。
func FromResult[T any](value T, err error) Capability[T] {
	if err != nil {
		return Unavailable[T](err.Error())
	}
	return Available(value)
}

// Get 返回实例以及是否可用。
func (c Capability[T]) Get() (T, bool) {
	return c.value, c.available
}

// IsAvailable 报告是否可用。
func (c Capability[T]) IsAvailable() bool {
	return c.available
}

// Reason 返回不可用原因，可用时为空。
func (c Capability[T]) Reason() string {
	if c.available {
		return ""
	}
	if c.reason == "" {
		return "not configured"
	}
	return c.reason
}
