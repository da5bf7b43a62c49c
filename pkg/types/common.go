package types

// StringPtr 返回字符串指针，便于构造用户配置
func StringPtr(s string) *string { return &s }

// BoolPtr 返回布尔指针
func BoolPtr(b bool) *bool { return &b }

// IntPtr 返回整数指针
func IntPtr(i int) *int { return &i }
