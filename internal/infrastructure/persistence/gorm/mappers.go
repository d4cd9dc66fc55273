// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"github.com/platewise/v1/internal/domain/menu"
	"github.com/platewise/v1/internal/domain/upload"
)

// RestaurantToModel converts a domain restaurant to a GORM model
func RestaurantToModel(r *menu.Restaurant) *RestaurantModel {
	return &RestaurantModel{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

// RestaurantFromModel converts a GORM model to a domain restaurant
func RestaurantFromModel(m *RestaurantModel) *menu.Restaurant {
	return &menu.Restaurant{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// MenuToModel converts a domain menu to a GORM model
func MenuToModel(m *menu.Menu) *MenuModel {
	return &MenuModel{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

// MenuFromModel converts a GORM model to a domain menu
func MenuFromModel(m *MenuModel) *menu.Menu {
	return &menu.Menu{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

// SectionToModel converts a domain menu section to a GORM model
func SectionToModel(s *menu.MenuSection) *MenuSectionModel {
	return &MenuSectionModel{
		ID:        s.ID,
		MenuID:    s.MenuID,
		Name:      s.Name,
		Position:  s.Position,
		CreatedAt: s.CreatedAt,
	}
}

// SectionFromModel converts a GORM model to a domain menu section
func SectionFromModel(m *MenuSectionModel) *menu.MenuSection {
	return &menu.MenuSection{
		ID:        m.ID,
		MenuID:    m.MenuID,
		Name:      m.Name,
		Position:  m.Position,
		CreatedAt: m.CreatedAt,
	}
}

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *menu.Recipe) *RecipeModel {
	return &RecipeModel{
		ID:              r.ID,
		RestaurantID:    r.RestaurantID,
		SectionID:       r.SectionID,
		Name:            r.Name,
		Description:     r.Description,
		Instructions:    r.Instructions,
		ServingSize:     r.ServingSize,
		Price:           r.Price,
		Image:           r.Image,
		Options:         r.Options,
		SpecialNotes:    r.SpecialNotes,
		ProminenceScore: r.ProminenceScore,
		Status:          string(r.Status),
		IsOnMenu:        r.IsOnMenu,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// RecipeFromModel converts a GORM model to a domain recipe
func RecipeFromModel(m *RecipeModel) *menu.Recipe {
	return &menu.Recipe{
		ID:              m.ID,
		RestaurantID:    m.RestaurantID,
		SectionID:       m.SectionID,
		Name:            m.Name,
		Description:     m.Description,
		Instructions:    m.Instructions,
		ServingSize:     m.ServingSize,
		Price:           m.Price,
		Image:           m.Image,
		Options:         m.Options,
		SpecialNotes:    m.SpecialNotes,
		ProminenceScore: m.ProminenceScore,
		Status:          menu.RecipeStatus(m.Status),
		IsOnMenu:        m.IsOnMenu,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// IngredientToModel converts a domain ingredient to a GORM model
func IngredientToModel(i *menu.Ingredient) *IngredientModel {
	return &IngredientModel{
		ID:           i.ID,
		Code:         i.Code,
		Name:         i.Name,
		ParentCode:   i.ParentCode,
		AllergenCode: i.AllergenCode,
		Source:       string(i.Source),
		LastUpdated:  i.LastUpdated,
	}
}

// IngredientFromModel converts a GORM model to a domain ingredient
func IngredientFromModel(m *IngredientModel) *menu.Ingredient {
	return &menu.Ingredient{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		ParentCode:   m.ParentCode,
		AllergenCode: m.AllergenCode,
		Source:       menu.IngredientSource(m.Source),
		LastUpdated:  m.LastUpdated,
	}
}

// AllergenFromModel converts a GORM model to a domain allergen
func AllergenFromModel(m *AllergenModel) *menu.Allergen {
	return &menu.Allergen{
		ID:       m.ID,
		Code:     m.Code,
		Name:     m.Name,
		Category: m.Category,
	}
}

// RecipeIngredientToModel converts a domain recipe line to a GORM model
func RecipeIngredientToModel(l *menu.RecipeIngredient) *RecipeIngredientModel {
	return &RecipeIngredientModel{
		ID:           l.ID,
		RecipeID:     l.RecipeID,
		IngredientID: l.IngredientID,
		Quantity:     l.Quantity,
		Unit:         l.Unit,
		Notes:        l.Notes,
		Allergens:    l.Allergens,
		Confirmed:    l.Confirmed,
	}
}

// RecipeIngredientFromModel converts a GORM model to a domain recipe line
func RecipeIngredientFromModel(m *RecipeIngredientModel) *menu.RecipeIngredient {
	return &menu.RecipeIngredient{
		ID:           m.ID,
		RecipeID:     m.RecipeID,
		IngredientID: m.IngredientID,
		Quantity:     m.Quantity,
		Unit:         m.Unit,
		Notes:        m.Notes,
		Allergens:    m.Allergens,
		Confirmed:    m.Confirmed,
	}
}

// UploadToModel converts an upload aggregate to its GORM models
func UploadToModel(u *upload.MenuUpload) *MenuUploadModel {
	model := &MenuUploadModel{
		ID:                u.ID(),
		RestaurantID:      u.RestaurantID(),
		UserID:            u.UserID(),
		SourceType:        string(u.SourceType()),
		SourceValue:       u.SourceValue(),
		Status:            string(u.Status()),
		ErrorMessage:      u.ErrorMessage(),
		Stage0CompletedAt: u.StageCompletedAt(upload.StageIngest),
		Stage1CompletedAt: u.StageCompletedAt(upload.StageExtraction),
		Stage2CompletedAt: u.StageCompletedAt(upload.StageDeduction),
		CreatedAt:         u.CreatedAt(),
		UpdatedAt:         u.UpdatedAt(),
	}
	for _, stage := range u.Stages() {
		model.Stages = append(model.Stages, MenuUploadStageModel{
			UploadID:     u.ID(),
			Stage:        string(stage.Name()),
			Status:       string(stage.Status()),
			StartedAt:    stage.StartedAt(),
			CompletedAt:  stage.CompletedAt(),
			ErrorMessage: stage.ErrorMessage(),
			Details:      stage.Details(),
		})
	}
	for _, link := range u.Recipes() {
		model.Recipes = append(model.Recipes, MenuUploadRecipeModel{
			UploadID: u.ID(),
			RecipeID: link.RecipeID,
			Stage:    string(link.Stage),
		})
	}
	return model
}

// UploadFromModel rebuilds an upload aggregate from its GORM models
func UploadFromModel(m *MenuUploadModel) *upload.MenuUpload {
	state := upload.ReconstituteState{
		ID:                m.ID,
		RestaurantID:      m.RestaurantID,
		UserID:            m.UserID,
		SourceType:        upload.SourceType(m.SourceType),
		SourceValue:       m.SourceValue,
		Status:            upload.Status(m.Status),
		ErrorMessage:      m.ErrorMessage,
		Stage0CompletedAt: m.Stage0CompletedAt,
		Stage1CompletedAt: m.Stage1CompletedAt,
		Stage2CompletedAt: m.Stage2CompletedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for _, stage := range m.Stages {
		state.Stages = append(state.Stages, upload.ReconstituteStage{
			Name:         upload.StageName(stage.Stage),
			Status:       upload.StageStatus(stage.Status),
			StartedAt:    stage.StartedAt,
			CompletedAt:  stage.CompletedAt,
			ErrorMessage: stage.ErrorMessage,
			Details:      stage.Details,
		})
	}
	for _, link := range m.Recipes {
		state.Recipes = append(state.Recipes, upload.RecipeLink{
			RecipeID: link.RecipeID,
			Stage:    upload.StageName(link.Stage),
		})
	}
	return upload.Reconstitute(state)
}
