package geo

import "math"

// 地球平均半径（米）
const earthRadiusMeters = 6371000.0

// Point 经纬度坐标（WGS84）
type Point struct {
	Lat float64
	Lng float64
}

// DistanceMeters 用 Haversine 公式计算两点间球面距离（米）。
// 与 MySQL 的 ST_Distance_Sphere 在百米级误差内一致，
// 用于进程内排序与测试断言，真正的附近查询走数据库。
func DistanceMeters(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Valid 判断坐标是否在合法范围内
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
