package model

import "time"

type RoleType string

const (
	RoleAnnotator  RoleType = "annotator"
	RoleReviewer   RoleType = "reviewer"
	RoleAdmin      RoleType = "admin"
	RoleModelAgent RoleType = "model_agent"
)

// roleDependents 静态角色层级图：键角色被移除时，值角色一并失效。
// annotator ⊆ reviewer ⊆ admin；model_agent 独立于层级之外。
var roleDependents = map[RoleType][]RoleType{
	RoleAnnotator: {RoleReviewer},
	RoleReviewer:  {RoleAdmin},
}

// roleImplies 高角色隐含的低角色（用于授权判断与分配）
var roleImplies = map[RoleType][]RoleType{
	RoleReviewer: {RoleAnnotator},
	RoleAdmin:    {RoleReviewer, RoleAnnotator},
}

// DependentRoles 返回依赖 role 的全部角色（传递闭包），不含 role 本身
func DependentRoles(role RoleType) []RoleType {
	var out []RoleType
	seen := map[RoleType]bool{role: true}
	queue := []RoleType{role}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range roleDependents[cur] {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
				queue = append(queue, dep)
			}
		}
	}
	return out
}

// ImpliedRoles 返回 role 隐含的低角色，不含 role 本身
func ImpliedRoles(role RoleType) []RoleType {
	return roleImplies[role]
}

// ValidRole 校验角色取值
func ValidRole(role RoleType) bool {
	switch role {
	case RoleAnnotator, RoleReviewer, RoleAdmin, RoleModelAgent:
		return true
	}
	return false
}

// RoleAssignment 项目内的用户角色，带计票权重与归档/完成状态
// swagger:model RoleAssignment
type RoleAssignment struct {
	BaseModel
	ProjectID   uint       `gorm:"index;uniqueIndex:idx_project_user_role;type:bigint unsigned" json:"projectId"`
	UserID      uint       `gorm:"index;uniqueIndex:idx_project_user_role;type:bigint unsigned" json:"userId"`
	Role        RoleType   `gorm:"size:20;uniqueIndex:idx_project_user_role;not null" json:"role"`
	UserWeight  float64    `gorm:"default:1" json:"userWeight"`
	IsArchived  bool       `gorm:"default:false;index" json:"isArchived"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}
