package cache

import "fmt"

// Keys 缓存 key 布局：
//
//	<prefix>content:<course>:gen                 当前内容代号（失效令牌）
//	<prefix>content:<course>:data:<token>        该代号下的内容树
//	<prefix>points:<course>:<student>:gen
//	<prefix>points:<course>:<student>:data:<token>
type Keys struct {
	Prefix string
}

func (k Keys) ContentGeneration(courseID uint) string {
	return fmt.Sprintf("%scontent:%d:gen", k.Prefix, courseID)
}

func (k Keys) ContentData(courseID uint, token int64) string {
	return fmt.Sprintf("%scontent:%d:data:%d", k.Prefix, courseID, token)
}

func (k Keys) PointsGeneration(courseID, studentID uint) string {
	return fmt.Sprintf("%spoints:%d:%d:gen", k.Prefix, courseID, studentID)
}

func (k Keys) PointsData(courseID, studentID uint, token int64) string {
	return fmt.Sprintf("%spoints:%d:%d:data:%d", k.Prefix, courseID, studentID, token)
}
