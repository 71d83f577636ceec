package models

import (
	"time"

	"gorm.io/gorm"
)

// Restaurant 餐厅表，提供配送费计算所需的坐标与营业状态
type Restaurant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                         // 主键
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`                       // 名称
	Address   string         `gorm:"type:varchar(500)" json:"address"`                             // 地址
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`                                // 电话
	Latitude  float64        `gorm:"not null;default:0" json:"latitude"`                           // 纬度
	Longitude float64        `gorm:"not null;default:0" json:"longitude"`                          // 经度
	Status    string         `gorm:"type:varchar(20);not null;default:'open';index" json:"status"` // 营业状态（open/closed/busy）
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`                          // 是否启用
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                                   // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (Restaurant) TableName() string {
	return "restaurants"
}

// HasCoordinates 是否配置了有效坐标
func (r Restaurant) HasCoordinates() bool {
	return r.Latitude != 0 || r.Longitude != 0
}
