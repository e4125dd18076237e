package config

const (
	TransportStomp = "stomp"
	TransportRedis = "redis"
)

// Config 配置主体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Transport TransportConfig `mapstructure:"transport"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig 本地状态 API 配置
type ServerConfig struct {
	Addr         string   `mapstructure:"addr"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// BackendConfig REST 后端配置
type BackendConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // 秒，0 表示不设超时
	RetryCount int    `mapstructure:"retry_count"`
}

// TransportConfig 推送通道配置
type TransportConfig struct {
	Kind           string `mapstructure:"kind"` // stomp | redis
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	ReconnectDelay int    `mapstructure:"reconnect_delay"` // 毫秒
	Heartbeat      int    `mapstructure:"heartbeat"`       // 毫秒，0 关闭心跳
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SessionConfig 会话凭据，由外部 token provider 注入
type SessionConfig struct {
	AccessToken string `mapstructure:"access_token"`
}

// SyncConfig 同步与定时任务配置
type SyncConfig struct {
	SerializeInteractions  bool   `mapstructure:"serialize_interactions"`
	TypingTTL              int    `mapstructure:"typing_ttl"` // 秒，0 表示不过期
	ConversationResyncCron string `mapstructure:"conversation_resync_cron"`
	BookmarkResyncCron     string `mapstructure:"bookmark_resync_cron"`
	TypingSweepCron        string `mapstructure:"typing_sweep_cron"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
	File   string `mapstructure:"file"`   // 非空时额外写入该文件，只记录带 trace_id 的日志
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
