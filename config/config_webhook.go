package config

// WebhookConfig Webhook
type WebhookConfig struct {
	// 支持的变量 #{operation}=dig 或 plug,
	// #{hostname}=路由的域名,
	// #{service}=本地服务地址,
	// #{target}=CNAME 目标,
	// #{tunnel}=隧道 ID,
	// #{status}=结果: Applied Unchanged RolledBack Failed PartialFailure,
	// #{error}=错误信息
	URL string `mapstructure:"url" yaml:"url,omitempty"`
	// 如 RequestBody 为空则为 GET 请求，否则为 POST 请求。支持的变量同上
	RequestBody string `mapstructure:"requestBody" yaml:"requestBody,omitempty"`
	// 一行一个Header, 如：Authorization: Bearer API_KEY
	Headers string `mapstructure:"headers" yaml:"headers,omitempty"`
}

func (w WebhookConfig) Enabled() bool {
	return w.URL != ""
}
