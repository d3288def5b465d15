package metrics

// Label 指标标签
//
// 标签值应当是低基数的：mode、reason、route 可以，ID、请求 ID 不可以。
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
//
//	counter.Inc(ctx, metrics.L("reason", "clock_regressed"))
func L(key, value string) Label {
	return Label{
		Key:   key,
		Value: value,
	}
}
