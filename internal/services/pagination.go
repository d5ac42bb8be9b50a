package services

const (
	defaultPageLimit = 10
	maxPageLimit     = 20
)

// normalizePage 将客户端传入的分页参数收敛到合法区间
func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit
}
