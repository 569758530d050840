// Package compat 組合分類表、掃描器與語言判斷，產生食譜與個人或圈子的相容性報告
package compat

import (
	"context"
	"errors"
	"time"

	"recipe-compat/internal/core/dietary"
	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 操作名稱，用於日誌與指標
const (
	OpPersonal = "personal"
	OpCircle   = "circle"
	OpBatch    = "batch"
	OpFilter   = "filter"
	OpProfile  = "profile"
)

// RecipeSource 食譜快照來源
type RecipeSource interface {
	GetRecipe(ctx context.Context, id string) (*common.Recipe, error)
}

// PeopleSource 成員與圈子快照來源
type PeopleSource interface {
	GetPerson(ctx context.Context, id string) (*common.Person, error)
	GetCircle(ctx context.Context, id string) (*common.Circle, error)
}

// LanguageLookup 查詢先前偵測並快取的語言
type LanguageLookup interface {
	GetLanguage(ctx context.Context, recipeID string) (string, bool)
}

// Dependencies 服務依賴；Languages、Dispatcher、Metrics 可為 nil
type Dependencies struct {
	Taxonomy   *dietary.Taxonomy
	Recipes    RecipeSource
	People     PeopleSource
	Languages  LanguageLookup
	Dispatcher *Dispatcher
	Metrics    *Metrics
}

// Service 相容性檢查服務
type Service struct {
	taxonomy   *dietary.Taxonomy
	recipes    RecipeSource
	people     PeopleSource
	languages  LanguageLookup
	dispatcher *Dispatcher
	metrics    *Metrics
	workers    int
}

// NewService 創建相容性檢查服務
func NewService(cfg config.CompatConfig, deps Dependencies) *Service {
	taxonomy := deps.Taxonomy
	if taxonomy == nil {
		taxonomy = dietary.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		taxonomy:   taxonomy,
		recipes:    deps.Recipes,
		people:     deps.People,
		languages:  deps.Languages,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		workers:    workers,
	}
}

// CheckPersonal 檢查食譜是否符合單一使用者的過敏原與飲食限制
func (s *Service) CheckPersonal(ctx context.Context, recipe *common.Recipe, person *common.Person) *PersonalCompatibilityReport {
	start := time.Now()
	report := &PersonalCompatibilityReport{
		RecipeID:                recipe.ID,
		PersonID:                person.ID,
		AllergenConflicts:       []dietary.AllergenConflict{},
		RestrictionConflicts:    []dietary.RestrictionConflict{},
		ConflictingIngredients:  []string{},
		ConflictingAllergens:    []dietary.AllergenCategory{},
		ConflictingRestrictions: []dietary.RestrictionCategory{},
	}
	defer func() { s.finish(OpPersonal, recipe.ID, start, report.IsCompatible, report.LanguageSupported) }()

	if !person.HasConstraints() {
		report.IsCompatible = true
		report.LanguageSupported = true
		report.Summary = summaryNoPreferences
		return report
	}

	lang, supported := s.resolveLanguage(ctx, recipe)
	report.DetectedLanguage = lang
	report.LanguageSupported = supported
	if !supported {
		report.IsCompatible = false
		report.Summary = unverifiableSummary(lang)
		return report
	}

	allergens, restrictions := s.scanPerson(recipe, person)
	set := newConflictSet()
	set.add(allergens, restrictions)

	report.AllergenConflicts = allergens
	report.RestrictionConflicts = restrictions
	report.ConflictingIngredients = set.ingredients
	report.ConflictingAllergens = set.allergenList()
	report.ConflictingRestrictions = set.restrictionList()
	report.IsCompatible = set.empty()
	if report.IsCompatible {
		report.Summary = summaryPersonalCompatible
	} else {
		report.Summary = conflictSummary(report.ConflictingAllergens, report.ConflictingRestrictions)
	}
	return report
}

// CheckCircle 逐一檢查圈子成員。語言無法驗證且有成員記錄了限制時，整份報告標記為無法驗證
func (s *Service) CheckCircle(ctx context.Context, recipe *common.Recipe, circle *common.Circle) (*CompatibilityReport, error) {
	start := time.Now()
	report := &CompatibilityReport{
		RecipeID:                   recipe.ID,
		CircleID:                   circle.ID,
		CircleName:                 circle.Name,
		MemberConflicts:            []MemberConflict{},
		AllConflictingIngredients:  []string{},
		AllConflictingAllergens:    []dietary.AllergenCategory{},
		AllConflictingRestrictions: []dietary.RestrictionCategory{},
		SafeForMembers:             []MemberRef{},
	}

	if !circle.AnyConstraints() {
		for _, m := range circle.Members {
			report.SafeForMembers = append(report.SafeForMembers, MemberRef{MemberID: m.ID, MemberName: m.Name})
		}
		report.IsCompatible = true
		report.LanguageSupported = true
		report.Summary = summaryCircleNoPreferences
		s.finish(OpCircle, recipe.ID, start, true, true)
		return report, nil
	}

	lang, supported := s.resolveLanguage(ctx, recipe)
	report.DetectedLanguage = lang
	report.LanguageSupported = supported
	if !supported {
		report.Summary = unverifiableSummary(lang)
		s.finish(OpCircle, recipe.ID, start, false, false)
		return report, nil
	}

	members := circle.Members
	results := make([]MemberConflict, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range members {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := &members[i]
			allergens, restrictions := s.scanPerson(recipe, m)
			results[i] = MemberConflict{
				MemberID:             m.ID,
				MemberName:           m.Name,
				AvatarEmoji:          m.AvatarEmoji,
				AllergenConflicts:    allergens,
				RestrictionConflicts: restrictions,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := newConflictSet()
	for _, r := range results {
		if len(r.AllergenConflicts) == 0 && len(r.RestrictionConflicts) == 0 {
			report.SafeForMembers = append(report.SafeForMembers, MemberRef{MemberID: r.MemberID, MemberName: r.MemberName})
			continue
		}
		report.MemberConflicts = append(report.MemberConflicts, r)
		set.add(r.AllergenConflicts, r.RestrictionConflicts)
	}

	report.AllConflictingIngredients = set.ingredients
	report.AllConflictingAllergens = set.allergenList()
	report.AllConflictingRestrictions = set.restrictionList()
	report.IsCompatible = len(report.MemberConflicts) == 0
	if report.IsCompatible {
		report.Summary = circleCompatibleSummary(len(members))
	} else {
		report.Summary = circleConflictSummary(report.MemberConflicts, len(members), set)
	}

	s.finish(OpCircle, recipe.ID, start, report.IsCompatible, true)
	return report, nil
}

// BatchCheck 以圈子所有成員的限制合併成一份清單，逐一檢查食譜，不做語言判斷
func (s *Service) BatchCheck(ctx context.Context, recipes []*common.Recipe, circle *common.Circle) (map[string]bool, error) {
	start := time.Now()
	compatible, err := s.aggregateCheck(ctx, recipes, circle)
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(recipes))
	for i, r := range recipes {
		results[r.ID] = compatible[i]
	}

	s.observeAggregate(OpBatch, start, compatible)
	return results, nil
}

// FilterCompatible 保留與圈子合併限制沒有任何衝突的食譜，維持原本順序
func (s *Service) FilterCompatible(ctx context.Context, recipes []*common.Recipe, circle *common.Circle) ([]*common.Recipe, error) {
	start := time.Now()
	compatible, err := s.aggregateCheck(ctx, recipes, circle)
	if err != nil {
		return nil, err
	}

	out := make([]*common.Recipe, 0, len(recipes))
	for i, r := range recipes {
		if compatible[i] {
			out = append(out, r)
		}
	}

	s.observeAggregate(OpFilter, start, compatible)
	return out, nil
}

// Profile 列出食譜含有的所有過敏原與違反的飲食限制
func (s *Service) Profile(ctx context.Context, recipe *common.Recipe) *Profile {
	start := time.Now()
	lang, supported := s.resolveLanguage(ctx, recipe)
	profile := &Profile{
		RecipeID:          recipe.ID,
		Title:             recipe.Title,
		Allergens:         s.taxonomy.DetectAllAllergens(recipe.Components),
		Violations:        s.taxonomy.DetectAllRestrictionViolations(recipe.Components),
		IngredientCount:   recipe.IngredientCount(),
		DetectedLanguage:  lang,
		LanguageSupported: supported,
	}
	s.metrics.observeCheck(OpProfile, outcome(true, supported), time.Since(start))
	return profile
}

// Classify 分類單一食材名稱
func (s *Service) Classify(name string) *Classification {
	c := &Classification{
		Name:         name,
		Allergens:    s.taxonomy.ClassifyAllergens(name),
		Restrictions: s.taxonomy.ClassifyRestrictions(name),
	}
	if c.Allergens == nil {
		c.Allergens = []dietary.AllergenCategory{}
	}
	if c.Restrictions == nil {
		c.Restrictions = []dietary.RestrictionCategory{}
	}
	return c
}

// CheckPersonalByID 從資料來源載入快照後執行 CheckPersonal
func (s *Service) CheckPersonalByID(ctx context.Context, recipeID, personID string) (*PersonalCompatibilityReport, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	person, err := s.people.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	return s.CheckPersonal(ctx, recipe, person), nil
}

// CheckCircleByID 從資料來源載入快照後執行 CheckCircle
func (s *Service) CheckCircleByID(ctx context.Context, recipeID, circleID string) (*CompatibilityReport, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	circle, err := s.people.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	return s.CheckCircle(ctx, recipe, circle)
}

// BatchCheckByID 批次檢查；找不到的食譜不列入結果
func (s *Service) BatchCheckByID(ctx context.Context, recipeIDs []string, circleID string) (map[string]bool, error) {
	circle, err := s.people.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	recipes, err := s.loadRecipes(ctx, recipeIDs)
	if err != nil {
		return nil, err
	}
	return s.BatchCheck(ctx, recipes, circle)
}

// FilterCompatibleByID 回傳相容的食譜 ID；找不到的食譜視為不相容
func (s *Service) FilterCompatibleByID(ctx context.Context, recipeIDs []string, circleID string) ([]string, error) {
	circle, err := s.people.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	recipes, err := s.loadRecipes(ctx, recipeIDs)
	if err != nil {
		return nil, err
	}
	kept, err := s.FilterCompatible(ctx, recipes, circle)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(kept))
	for i, r := range kept {
		ids[i] = r.ID
	}
	return ids, nil
}

// ProfileByID 從資料來源載入食譜後執行 Profile
func (s *Service) ProfileByID(ctx context.Context, recipeID string) (*Profile, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, recipe), nil
}

// scanPerson 以個人的限制掃描食譜
func (s *Service) scanPerson(recipe *common.Recipe, person *common.Person) ([]dietary.AllergenConflict, []dietary.RestrictionConflict) {
	allergens := s.taxonomy.ScanForAllergens(recipe.Components, person.Allergens)
	restrictions := s.taxonomy.ScanForRestrictions(recipe.Components, person.Restrictions)
	if allergens == nil {
		allergens = []dietary.AllergenConflict{}
	}
	if restrictions == nil {
		restrictions = []dietary.RestrictionConflict{}
	}
	return allergens, restrictions
}

// aggregateCheck 合併所有成員的限制後逐一掃描食譜，回傳與 recipes 對應的結果
func (s *Service) aggregateCheck(ctx context.Context, recipes []*common.Recipe, circle *common.Circle) ([]bool, error) {
	var allergenNames, restrictionNames []string
	for _, m := range circle.Members {
		allergenNames = append(allergenNames, m.Allergens...)
		restrictionNames = append(restrictionNames, m.Restrictions...)
	}
	allergens := s.taxonomy.ResolveAllergens(allergenNames)
	restrictions := s.taxonomy.ResolveRestrictions(restrictionNames)

	compatible := make([]bool, len(recipes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, r := range recipes {
		i, r := i, r
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			compatible[i] = len(s.taxonomy.ScanAllergenCategories(r.Components, allergens)) == 0 &&
				len(s.taxonomy.ScanRestrictionCategories(r.Components, restrictions)) == 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compatible, nil
}

// loadRecipes 並行載入食譜，略過找不到的項目
func (s *Service) loadRecipes(ctx context.Context, ids []string) ([]*common.Recipe, error) {
	loaded := make([]*common.Recipe, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			r, err := s.recipes.GetRecipe(gctx, id)
			if err != nil {
				if errors.Is(err, common.ErrRecipeNotFound) {
					common.LogDebug("Skipping missing recipe", zap.String("recipe_id", id))
					return nil
				}
				return err
			}
			loaded[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recipes := make([]*common.Recipe, 0, len(loaded))
	for _, r := range loaded {
		if r != nil {
			recipes = append(recipes, r)
		}
	}
	return recipes, nil
}

// resolveLanguage 依序使用食譜已儲存的語言、快取、啟發式偵測。
// 回傳的 bool 表示是否可信任掃描結果；完全無法判斷時視為可信任
func (s *Service) resolveLanguage(ctx context.Context, recipe *common.Recipe) (string, bool) {
	if stored := recipe.StoredLanguage(); stored != "" {
		lang := dietary.NormalizeLanguage(stored)
		supported := dietary.IsSupportedLanguage(lang)
		s.metrics.observeLanguage(languageSourceStored, supported)
		return lang, supported
	}

	if s.languages != nil && recipe.ID != "" {
		if cached, ok := s.languages.GetLanguage(ctx, recipe.ID); ok && cached != "" {
			lang := dietary.NormalizeLanguage(cached)
			supported := dietary.IsSupportedLanguage(lang)
			s.metrics.observeLanguage(languageSourceCache, supported)
			return lang, supported
		}
	}

	lang, ok := dietary.DetectLanguage(dietary.RecipeText(recipe))
	if !ok {
		s.metrics.observeLanguage(languageSourceNone, true)
		return "", true
	}

	if recipe.ID != "" {
		s.dispatcher.Dispatch(recipe.ID, lang)
	}
	supported := dietary.IsSupportedLanguage(lang)
	s.metrics.observeLanguage(languageSourceHeuristic, supported)
	return lang, supported
}

func (s *Service) finish(operation, recipeID string, start time.Time, compatible, languageSupported bool) {
	elapsed := time.Since(start)
	s.metrics.observeCheck(operation, outcome(compatible, languageSupported), elapsed)
	common.LogCheck(operation, recipeID, elapsed, compatible, languageSupported)
}

func (s *Service) observeAggregate(operation string, start time.Time, compatible []bool) {
	elapsed := time.Since(start)
	ok := 0
	for _, c := range compatible {
		if c {
			ok++
		}
	}
	common.LogDebug("批次相容性檢查完成",
		zap.String("operation", operation),
		zap.Int("recipes", len(compatible)),
		zap.Int("compatible", ok),
		zap.Duration("耗時", elapsed),
	)
	if s.metrics == nil {
		return
	}
	for _, c := range compatible {
		s.metrics.checks.WithLabelValues(operation, outcome(c, true)).Inc()
	}
	s.metrics.checkDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
