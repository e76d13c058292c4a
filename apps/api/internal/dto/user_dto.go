package dto

// ==================== 用户资料服务 DTO ====================

// RegisterRequest 注册请求 DTO
// multipart 表单：文本字段 + 头像文件（文件在 Handler 层单独取）。
// 校验边界（昵称长度、年龄范围）可配置，这里只做 required 级别校验，
// 具体边界由 Service 层按配置校验。
type RegisterRequest struct {
	DisplayName string   `form:"displayName" binding:"required"`      // 昵称
	Age         int      `form:"age" binding:"required"`              // 年龄
	Bio         string   `form:"bio" binding:"omitempty"`             // 个人简介
	Interests   []string `form:"interests" binding:"omitempty"`       // 兴趣标签
	LookingFor  []string `form:"lookingFor" binding:"omitempty"`      // 期望认识
	Languages   []string `form:"languages" binding:"omitempty"`       // 语言
	Latitude    *float64 `form:"latitude" binding:"omitempty"`        // 纬度（可选）
	Longitude   *float64 `form:"longitude" binding:"omitempty"`       // 经度（可选）
	Consent     bool     `form:"locationConsent" binding:"omitempty"` // 位置共享同意
}

// RegisterResponse 注册响应 DTO
type RegisterResponse struct {
	Profile *ProfileInfo `json:"profile"` // 创建后的资料
	Token   string       `json:"token"`   // 签发的访问 Token
}

// UpdateProfileRequest 更新资料请求 DTO
// multipart 表单，头像文件可选（不传则保留原头像）。
// RetainPhotoSlots 声明要保留的照片槽位，未声明的槽位照片会被删除；
// 新照片文件按 photo0/photo1/photo2 字段名上传到对应槽位。
type UpdateProfileRequest struct {
	DisplayName      string   `form:"displayName" binding:"omitempty"`
	Age              *int     `form:"age" binding:"omitempty"`
	Bio              *string  `form:"bio" binding:"omitempty"`
	Interests        []string `form:"interests" binding:"omitempty"`
	LookingFor       []string `form:"lookingFor" binding:"omitempty"`
	Languages        []string `form:"languages" binding:"omitempty"`
	RetainPhotoSlots []int8   `form:"retainPhotoSlots" binding:"omitempty"`
}

// UpdateProfileResponse 更新资料响应 DTO
type UpdateProfileResponse struct {
	Profile *ProfileInfo `json:"profile"`
}

// GetProfileResponse 获取个人资料响应 DTO
type GetProfileResponse struct {
	Profile *ProfileInfo `json:"profile"`
}

// UpdateLocationRequest 上报位置请求 DTO
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required,min=-90,max=90"`    // 纬度
	Longitude float64 `json:"longitude" binding:"required,min=-180,max=180"` // 经度
	Consent   bool    `json:"locationConsent"`                               // 位置共享同意
}

// NearbyRequest 附近用户请求 DTO
// lat/lng 可选：不传时以用户上报过的位置为原点
type NearbyRequest struct {
	Latitude     *float64 `form:"lat" binding:"omitempty,min=-90,max=90"`               // 查询原点纬度
	Longitude    *float64 `form:"lng" binding:"omitempty,min=-180,max=180"`             // 查询原点经度
	RadiusMeters float64  `form:"radiusMeters" binding:"omitempty,min=100,max=100000"`  // 搜索半径（米）
	Limit        int      `form:"limit" binding:"omitempty,min=1,max=50"`               // 返回数量上限
}

// NearbyResponse 附近用户响应 DTO
type NearbyResponse struct {
	Users []*NearbyUserInfo `json:"users"`
}
