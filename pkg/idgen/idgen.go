package idgen

import (
	"github.com/bwmarrin/snowflake"
)

var global *snowflake.Node

// Build 创建 Snowflake 节点
// nodeID: 实例编号，多副本部署时每个副本必须不同
func Build(nodeID int64) (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}

// ReplaceGlobal 设置全局节点
func ReplaceGlobal(node *snowflake.Node) {
	global = node
}

// NextID 生成一个全局唯一 ID
// 未初始化时惰性兜底为节点 0（仅测试场景）
func NextID() int64 {
	if global == nil {
		node, err := snowflake.NewNode(0)
		if err != nil {
			return 0
		}
		global = node
	}
	return global.Generate().Int64()
}
