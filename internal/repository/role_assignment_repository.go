package repository

import (
	"time"

	"video_label_backend/internal/model"

	"gorm.io/gorm"
)

type RoleAssignmentRepository struct {
	DB *gorm.DB
}

func NewRoleAssignmentRepository(db *gorm.DB) *RoleAssignmentRepository {
	return &RoleAssignmentRepository{DB: db}
}

// Upsert 创建或恢复角色分配；已归档的行被激活并更新权重
func (r *RoleAssignmentRepository) Upsert(tx *gorm.DB, assignment *model.RoleAssignment) error {
	var existing model.RoleAssignment
	err := tx.Where("project_id = ? AND user_id = ? AND role = ?",
		assignment.ProjectID, assignment.UserID, assignment.Role).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return tx.Create(assignment).Error
	}
	if err != nil {
		return err
	}
	existing.UserWeight = assignment.UserWeight
	existing.IsArchived = false
	return tx.Save(&existing).Error
}

// FindActive 查找未归档的角色分配
func (r *RoleAssignmentRepository) FindActive(projectID, userID uint, role model.RoleType) (*model.RoleAssignment, error) {
	var a model.RoleAssignment
	err := r.DB.Where("project_id = ? AND user_id = ? AND role = ? AND is_archived = ?",
		projectID, userID, role, false).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HasActiveRole 判断用户在项目内是否持有角色（含高角色隐含的低角色）
func (r *RoleAssignmentRepository) HasActiveRole(projectID, userID uint, role model.RoleType) (bool, error) {
	roles := []model.RoleType{role}
	for _, higher := range []model.RoleType{model.RoleAnnotator, model.RoleReviewer, model.RoleAdmin} {
		for _, implied := range model.ImpliedRoles(higher) {
			if implied == role {
				roles = append(roles, higher)
			}
		}
	}

	var count int64
	err := r.DB.Model(&model.RoleAssignment{}).
		Where("project_id = ? AND user_id = ? AND role IN ? AND is_archived = ?",
			projectID, userID, roles, false).
		Count(&count).Error
	return count > 0, err
}

// Archive 归档给定的一组角色（层级级联由服务层展开后传入）
func (r *RoleAssignmentRepository) Archive(tx *gorm.DB, projectID, userID uint, roles []model.RoleType) error {
	return tx.Model(&model.RoleAssignment{}).
		Where("project_id = ? AND user_id = ? AND role IN ?", projectID, userID, roles).
		Update("is_archived", true).Error
}

func (r *RoleAssignmentRepository) ListActive(projectID uint, role model.RoleType) ([]model.RoleAssignment, error) {
	var assignments []model.RoleAssignment
	err := r.DB.Where("project_id = ? AND role = ? AND is_archived = ?",
		projectID, role, false).Find(&assignments).Error
	return assignments, err
}

// WeightSnapshot 返回项目内各用户的计票权重快照。
// 优先取 annotator 行的权重（层级上所有参与者都持有它），缺失时回落到任意活跃行。
func (r *RoleAssignmentRepository) WeightSnapshot(projectID uint) (map[uint]float64, error) {
	var assignments []model.RoleAssignment
	err := r.DB.Where("project_id = ? AND is_archived = ?", projectID, false).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	weights := make(map[uint]float64, len(assignments))
	fromAnnotator := make(map[uint]bool)
	for _, a := range assignments {
		if a.Role == model.RoleAnnotator {
			weights[a.UserID] = a.UserWeight
			fromAnnotator[a.UserID] = true
			continue
		}
		if !fromAnnotator[a.UserID] {
			weights[a.UserID] = a.UserWeight
		}
	}
	return weights, nil
}

// MarkComplete 设置项目内某角色全部活跃分配的完成时间
func (r *RoleAssignmentRepository) MarkComplete(tx *gorm.DB, projectID uint, role model.RoleType, at time.Time) error {
	return tx.Model(&model.RoleAssignment{}).
		Where("project_id = ? AND role = ? AND is_archived = ?", projectID, role, false).
		Update("completed_at", at).Error
}

// MarkUserComplete 设置单个用户某角色的完成时间（nil 表示清除）
func (r *RoleAssignmentRepository) MarkUserComplete(tx *gorm.DB, projectID, userID uint, role model.RoleType, at *time.Time) error {
	return tx.Model(&model.RoleAssignment{}).
		Where("project_id = ? AND user_id = ? AND role = ?", projectID, userID, role).
		Update("completed_at", at).Error
}
