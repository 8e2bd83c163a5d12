package repository

import (
	"video_label_backend/internal/model"

	"gorm.io/gorm"
)

type ProjectRepository struct {
	DB *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{DB: db}
}

func (r *ProjectRepository) Create(project *model.Project) error {
	return r.DB.Create(project).Error
}

func (r *ProjectRepository) FindByID(id uint) (*model.Project, error) {
	var p model.Project
	err := r.DB.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) Archive(id uint) error {
	return r.DB.Model(&model.Project{}).Where("id = ?", id).
		Update("is_archived", true).Error
}

func (r *ProjectRepository) List(page, limit int) ([]model.Project, int64, error) {
	var total int64
	query := r.DB.Model(&model.Project{}).Where("is_archived = ?", false)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []model.Project
	offset := (page - 1) * limit
	err := r.DB.Where("is_archived = ?", false).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&projects).Error
	return projects, total, err
}

func (r *ProjectRepository) AddVideo(projectID, videoID uint) error {
	return r.DB.Create(&model.ProjectVideo{ProjectID: projectID, VideoID: videoID}).Error
}

// VideoIDs 返回项目下未归档视频的ID集合
func (r *ProjectRepository) VideoIDs(projectID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("project_videos pv").
		Joins("JOIN videos v ON v.id = pv.video_id").
		Where("pv.project_id = ? AND v.is_archived = ? AND pv.deleted_at IS NULL", projectID, false).
		Pluck("pv.video_id", &ids).Error
	return ids, err
}

func (r *ProjectRepository) AddSchemaEntry(entry *model.ProjectSchemaEntry) error {
	return r.DB.Create(entry).Error
}

// SchemaGroups 按挂载顺序返回项目的未归档问题组
func (r *ProjectRepository) SchemaGroups(projectID uint) ([]model.QuestionGroup, error) {
	var entries []model.ProjectSchemaEntry
	err := r.DB.Preload("Group").
		Where("project_id = ?", projectID).
		Order("sort_order asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}

	groups := make([]model.QuestionGroup, 0, len(entries))
	for _, e := range entries {
		if e.Group != nil && !e.Group.IsArchived {
			groups = append(groups, *e.Group)
		}
	}
	return groups, nil
}

// HasGroup 判断问题组是否挂在项目模板下
func (r *ProjectRepository) HasGroup(projectID, groupID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.ProjectSchemaEntry{}).
		Where("project_id = ? AND group_id = ?", projectID, groupID).
		Count(&count).Error
	return count > 0, err
}

// ProjectIDsForGroup 返回挂载了该组的项目ID（限定在 candidates 内，candidates 为空则不限定）
func (r *ProjectRepository) ProjectIDsForGroup(groupID uint, candidates []uint) ([]uint, error) {
	query := r.DB.Model(&model.ProjectSchemaEntry{}).Where("group_id = ?", groupID)
	if len(candidates) > 0 {
		query = query.Where("project_id IN ?", candidates)
	}
	var ids []uint
	err := query.Pluck("project_id", &ids).Error
	return ids, err
}

// QuestionIDs 项目模板下全部未归档问题的去重ID集合（完成度与覆盖率判定用）
func (r *ProjectRepository) QuestionIDs(projectID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("project_schema_entries pse").
		Joins("JOIN question_group_entries qge ON qge.group_id = pse.group_id AND qge.deleted_at IS NULL").
		Joins("JOIN questions q ON q.id = qge.question_id AND q.deleted_at IS NULL").
		Joins("JOIN question_groups g ON g.id = pse.group_id AND g.deleted_at IS NULL").
		Where("pse.project_id = ? AND pse.deleted_at IS NULL AND q.is_archived = ? AND g.is_archived = ?",
			projectID, false, false).
		Distinct().
		Pluck("q.id", &ids).Error
	return ids, err
}

func (r *ProjectRepository) UpsertDisplayOverride(o *model.ProjectQuestionDisplay) error {
	var existing model.ProjectQuestionDisplay
	err := r.DB.Where("project_id = ? AND question_id = ? AND option_value = ?",
		o.ProjectID, o.QuestionID, o.OptionValue).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(o).Error
	}
	if err != nil {
		return err
	}
	existing.DisplayText = o.DisplayText
	existing.DisplayValue = o.DisplayValue
	return r.DB.Save(&existing).Error
}

// DisplayOverrides 返回项目对给定问题集的展示覆盖
func (r *ProjectRepository) DisplayOverrides(projectID uint, questionIDs []uint) ([]model.ProjectQuestionDisplay, error) {
	var overrides []model.ProjectQuestionDisplay
	query := r.DB.Where("project_id = ?", projectID)
	if len(questionIDs) > 0 {
		query = query.Where("question_id IN ?", questionIDs)
	}
	err := query.Find(&overrides).Error
	return overrides, err
}

// HasDisplayOverrides 判断任一项目是否对给定问题持有展示覆盖（可复用组不变式检查用）
func (r *ProjectRepository) HasDisplayOverrides(questionIDs []uint) (bool, error) {
	if len(questionIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.DB.Model(&model.ProjectQuestionDisplay{}).
		Where("question_id IN ?", questionIDs).
		Count(&count).Error
	return count > 0, err
}
