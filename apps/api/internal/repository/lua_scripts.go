package repository

const (
	// luaAddPendingConnIfExists 连接请求写入（仅在 key 存在时增量更新）
	// KEYS[1]: 待处理连接请求 ZSet
	// ARGV[1]: score(created_at unix)
	// ARGV[2]: member(from_telegram_id)
	// ARGV[3]: 过期时间（秒）
	// 返回: 1 表示写入成功，0 表示 key 不存在
	luaAddPendingConnIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('ZREM', KEYS[1], '__EMPTY__')
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
	redis.call('EXPIRE', KEYS[1], ARGV[3])
	return 1
end
return 0
`

	// luaRemovePendingConnIfExists 连接请求移除（仅在 key 存在时增量更新）
	// KEYS[1]: 待处理连接请求 ZSet
	// ARGV[1]: member(from_telegram_id)
	// ARGV[2]: 过期时间（秒）
	// 返回: 1 表示执行成功，0 表示 key 不存在
	luaRemovePendingConnIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('ZREM', KEYS[1], ARGV[1])
	redis.call('ZREM', KEYS[1], '__EMPTY__')
	if redis.call('ZCARD', KEYS[1]) == 0 then
		redis.call('ZADD', KEYS[1], 0, '__EMPTY__')
	end
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return 1
end
return 0
`
)
