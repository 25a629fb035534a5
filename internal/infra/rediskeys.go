package infra

// RedisNamespace — базовый префикс для изоляции данных монитора в Redis.
const RedisNamespace = "wcm"

// Ключи для Sets (состояние)
const (
	RedisKeyPausedWorkflows  = RedisNamespace + ":workflows:paused_set"
	RedisKeyLockWarmupPaused = RedisNamespace + ":lock:warmup:paused"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanPauseSignal — трансляция пауз/возобновлений ("workflowID:on|off").
	RedisChanPauseSignal = RedisNamespace + ":workflows:pause-signal"
	RedisChanPolicyUpdate = RedisNamespace + ":policies:update"
)
