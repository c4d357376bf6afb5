package domain

// Role 固定枚举
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// RoleSet 路由注册时配置的角色集合；空集合表示不限角色
type RoleSet map[Role]struct{}

func Roles(rs ...Role) RoleSet {
	s := make(RoleSet, len(rs))
	for _, r := range rs {
		s[r] = struct{}{}
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) Empty() bool { return len(s) == 0 }
