package models

import "time"

// CartSnapshot 购物车快照表，每个身份键一行
type CartSnapshot struct {
	Key       string    `gorm:"primarykey;type:varchar(191)" json:"key"` // 身份键（cart_<userId> / guest_cart）
	Revision  int64     `gorm:"not null;default:0" json:"revision"`      // 快照版本，旧版本写入会被忽略
	Payload   string    `gorm:"type:text;not null" json:"payload"`       // 购物车状态 JSON
	Deleted   bool      `gorm:"not null;default:false" json:"deleted"`   // 清空后的墓碑，保留版本号以拒绝旧写入
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                 // 更新时间
}

// TableName 指定表名
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
