package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mobilepro.local/hunt-gateway/internal/billing"
	dbpkg "mobilepro.local/hunt-gateway/internal/db"
	"mobilepro.local/hunt-gateway/internal/ids"
	"mobilepro.local/hunt-gateway/internal/quiz"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/session"
)

const initializedKey = "initialized"

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	db, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	store := &GormStore{db: db}
	if err := db.AutoMigrate(
		&districtRow{},
		&storeRow{},
		&userRow{},
		&questionRow{},
		&resultRow{},
		&transcriptRow{},
		&scenarioRow{},
		&metaRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate record store: %w", err)
	}
	return store, nil
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Districts(ctx context.Context) ([]roster.District, error) {
	var rows []districtRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	out := make([]roster.District, 0, len(rows))
	for _, r := range rows {
		out = append(out, roster.District{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *GormStore) Stores(ctx context.Context) ([]roster.Store, error) {
	var rows []storeRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	out := make([]roster.Store, 0, len(rows))
	for _, r := range rows {
		out = append(out, roster.Store{ID: r.ID, Name: r.Name, DistrictID: r.DistrictID})
	}
	return out, nil
}

func (s *GormStore) Users(ctx context.Context) ([]roster.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]roster.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toUser())
	}
	return out, nil
}

func (s *GormStore) User(ctx context.Context, id string) (roster.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return roster.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return roster.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toUser(), nil
}

func (s *GormStore) SaveUser(ctx context.Context, u roster.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	return s.upsertOrdered(ctx, &userRow{}, u.ID, func(position int) any {
		row := userRowFrom(u, position)
		return &row
	})
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &userRow{}, "user", id)
}

func (s *GormStore) Questions(ctx context.Context) ([]quiz.Question, error) {
	var rows []questionRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]quiz.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toQuestion())
	}
	return out, nil
}

func (s *GormStore) SaveQuestion(ctx context.Context, q quiz.Question) error {
	if err := validateQuestion(q); err != nil {
		return err
	}
	return s.upsertOrdered(ctx, &questionRow{}, q.ID, func(position int) any {
		row := questionRowFrom(q, position)
		return &row
	})
}

func (s *GormStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &questionRow{}, "question", id)
}

func (s *GormStore) AppendResult(ctx context.Context, r quiz.Result) error {
	if r.ID == "" {
		r.ID = ids.Prefixed("qr_")
	}
	row := resultRowFrom(r)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append quiz result: %w", err)
	}
	return nil
}

func (s *GormStore) Results(ctx context.Context) ([]quiz.Result, error) {
	var rows []resultRow
	if err := s.db.WithContext(ctx).Order("timestamp").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	out := make([]quiz.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toResult())
	}
	return out, nil
}

func (s *GormStore) AppendTranscript(ctx context.Context, t session.Transcript) error {
	if err := requireID("transcript", t.ID); err != nil {
		return err
	}
	row := transcriptRowFrom(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

func (s *GormStore) Transcripts(ctx context.Context) ([]session.Transcript, error) {
	var rows []transcriptRow
	if err := s.db.WithContext(ctx).Order("timestamp").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	out := make([]session.Transcript, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toTranscript())
	}
	return out, nil
}

func (s *GormStore) SaveCustomScenario(ctx context.Context, sc scenario.Scenario) error {
	if err := validateScenario(sc); err != nil {
		return err
	}
	return s.upsertOrdered(ctx, &scenarioRow{}, sc.ID, func(position int) any {
		row := scenarioRowFrom(sc, position)
		return &row
	})
}

func (s *GormStore) ListCustomScenarios(ctx context.Context) ([]scenario.Scenario, error) {
	var rows []scenarioRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list custom scenarios: %w", err)
	}
	out := make([]scenario.Scenario, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toScenario())
	}
	return out, nil
}

func (s *GormStore) DeleteCustomScenario(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &scenarioRow{}, "scenario", id)
}

func (s *GormStore) Export(ctx context.Context) (Document, error) {
	var (
		doc Document
		err error
	)
	if doc.Districts, err = s.Districts(ctx); err != nil {
		return Document{}, err
	}
	if doc.Stores, err = s.Stores(ctx); err != nil {
		return Document{}, err
	}
	if doc.Users, err = s.Users(ctx); err != nil {
		return Document{}, err
	}
	if doc.Questions, err = s.Questions(ctx); err != nil {
		return Document{}, err
	}
	if doc.Results, err = s.Results(ctx); err != nil {
		return Document{}, err
	}
	if doc.HuntResponses, err = s.Transcripts(ctx); err != nil {
		return Document{}, err
	}
	if doc.CustomScenarios, err = s.ListCustomScenarios(ctx); err != nil {
		return Document{}, err
	}
	return doc.normalize(), nil
}

// Import replaces every present collection in one transaction.
func (s *GormStore) Import(ctx context.Context, doc Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.Districts != nil {
			rows := make([]districtRow, 0, len(doc.Districts))
			for i, d := range doc.Districts {
				rows = append(rows, districtRow{ID: d.ID, Name: d.Name, Position: i})
			}
			if err := replaceAll(tx, &districtRow{}, rows); err != nil {
				return fmt.Errorf("import districts: %w", err)
			}
		}
		if doc.Stores != nil {
			rows := make([]storeRow, 0, len(doc.Stores))
			for i, st := range doc.Stores {
				rows = append(rows, storeRow{ID: st.ID, Name: st.Name, DistrictID: st.DistrictID, Position: i})
			}
			if err := replaceAll(tx, &storeRow{}, rows); err != nil {
				return fmt.Errorf("import stores: %w", err)
			}
		}
		if doc.Users != nil {
			rows := make([]userRow, 0, len(doc.Users))
			for i, u := range doc.Users {
				rows = append(rows, userRowFrom(u, i))
			}
			if err := replaceAll(tx, &userRow{}, rows); err != nil {
				return fmt.Errorf("import users: %w", err)
			}
		}
		if doc.Questions != nil {
			rows := make([]questionRow, 0, len(doc.Questions))
			for i, q := range doc.Questions {
				rows = append(rows, questionRowFrom(q, i))
			}
			if err := replaceAll(tx, &questionRow{}, rows); err != nil {
				return fmt.Errorf("import questions: %w", err)
			}
		}
		if doc.Results != nil {
			rows := make([]resultRow, 0, len(doc.Results))
			for _, r := range withResultIDs(doc.Results) {
				rows = append(rows, resultRowFrom(r))
			}
			if err := replaceAll(tx, &resultRow{}, rows); err != nil {
				return fmt.Errorf("import quiz results: %w", err)
			}
		}
		if doc.HuntResponses != nil {
			rows := make([]transcriptRow, 0, len(doc.HuntResponses))
			for _, t := range doc.HuntResponses {
				rows = append(rows, transcriptRowFrom(t))
			}
			if err := replaceAll(tx, &transcriptRow{}, rows); err != nil {
				return fmt.Errorf("import transcripts: %w", err)
			}
		}
		if doc.CustomScenarios != nil {
			rows := make([]scenarioRow, 0, len(doc.CustomScenarios))
			for i, sc := range doc.CustomScenarios {
				rows = append(rows, scenarioRowFrom(sc, i))
			}
			if err := replaceAll(tx, &scenarioRow{}, rows); err != nil {
				return fmt.Errorf("import custom scenarios: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) Initialized(ctx context.Context) (bool, error) {
	var row metaRow
	err := s.db.WithContext(ctx).Where("key = ?", initializedKey).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read seed marker: %w", err)
	}
	return row.Value == "true", nil
}

func (s *GormStore) MarkInitialized(ctx context.Context) error {
	row := metaRow{Key: initializedKey, Value: "true"}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&row).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

// upsertOrdered writes the row built for id, keeping its list position when it
// already exists and appending it otherwise.
func (s *GormStore) upsertOrdered(ctx context.Context, model any, id string, build func(position int) any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var positions []int
		if err := tx.Model(model).Where("id = ?", id).Pluck("position", &positions).Error; err != nil {
			return fmt.Errorf("read position: %w", err)
		}
		position := 0
		if len(positions) > 0 {
			position = positions[0]
		} else {
			var last int
			if err := tx.Model(model).Select("COALESCE(MAX(position), -1)").Scan(&last).Error; err != nil {
				return fmt.Errorf("read last position: %w", err)
			}
			position = last + 1
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(build(position)).Error
	})
}

func (s *GormStore) deleteByID(ctx context.Context, model any, kind, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}

func replaceAll[T any](tx *gorm.DB, model any, rows []T) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, 100).Error
}

type districtRow struct {
	ID       string `gorm:"primaryKey;size:64"`
	Name     string `gorm:"size:191;not null"`
	Position int    `gorm:"not null"`
}

func (districtRow) TableName() string { return "districts" }

type storeRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"size:191;not null"`
	DistrictID string `gorm:"size:64;index"`
	Position   int    `gorm:"not null"`
}

func (storeRow) TableName() string { return "stores" }

type userRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"size:191;not null"`
	Role       string `gorm:"size:64;not null"`
	StoreID    string `gorm:"size:64;index"`
	DistrictID string `gorm:"size:64;index"`
	Position   int    `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

func userRowFrom(u roster.User, position int) userRow {
	return userRow{
		ID:         u.ID,
		Name:       u.Name,
		Role:       string(u.Role),
		StoreID:    u.StoreID,
		DistrictID: u.DistrictID,
		Position:   position,
	}
}

func (r userRow) toUser() roster.User {
	return roster.User{
		ID:         r.ID,
		Name:       r.Name,
		Role:       roster.Role(r.Role),
		StoreID:    r.StoreID,
		DistrictID: r.DistrictID,
	}
}

type questionRow struct {
	ID           string   `gorm:"primaryKey;size:64"`
	Text         string   `gorm:"type:text;not null"`
	Options      []string `gorm:"serializer:json;type:text"`
	CorrectIndex int      `gorm:"not null"`
	Position     int      `gorm:"not null"`
}

func (questionRow) TableName() string { return "quiz_questions" }

func questionRowFrom(q quiz.Question, position int) questionRow {
	return questionRow{
		ID:           q.ID,
		Text:         q.Text,
		Options:      append([]string(nil), q.Options...),
		CorrectIndex: q.CorrectIndex,
		Position:     position,
	}
}

func (r questionRow) toQuestion() quiz.Question {
	return quiz.Question{
		ID:           r.ID,
		Text:         r.Text,
		Options:      append([]string(nil), r.Options...),
		CorrectIndex: r.CorrectIndex,
	}
}

type resultRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	UserID       string `gorm:"size:64;index"`
	UserName     string `gorm:"size:191"`
	StoreName    string `gorm:"size:191"`
	StoreID      string `gorm:"size:64;index"`
	DistrictName string `gorm:"size:191"`
	DistrictID   string `gorm:"size:64;index"`
	Score        int
	Total        int
	Timestamp    int64 `gorm:"index"`
}

func (resultRow) TableName() string { return "quiz_results" }

func resultRowFrom(r quiz.Result) resultRow {
	return resultRow{
		ID:           r.ID,
		UserID:       r.UserID,
		UserName:     r.UserName,
		StoreName:    r.StoreName,
		StoreID:      r.StoreID,
		DistrictName: r.DistrictName,
		DistrictID:   r.DistrictID,
		Score:        r.Score,
		Total:        r.Total,
		Timestamp:    r.Timestamp,
	}
}

func (r resultRow) toResult() quiz.Result {
	return quiz.Result{
		ID:           r.ID,
		UserID:       r.UserID,
		UserName:     r.UserName,
		StoreName:    r.StoreName,
		StoreID:      r.StoreID,
		DistrictName: r.DistrictName,
		DistrictID:   r.DistrictID,
		Score:        r.Score,
		Total:        r.Total,
		Timestamp:    r.Timestamp,
	}
}

type transcriptRow struct {
	ID            string         `gorm:"primaryKey;size:64"`
	UserID        string         `gorm:"size:64;index"`
	UserName      string         `gorm:"size:191"`
	StoreID       string         `gorm:"size:64;index"`
	DistrictID    string         `gorm:"size:64;index"`
	StoreName     string         `gorm:"size:191"`
	ScenarioID    string         `gorm:"size:64"`
	ScenarioTitle string         `gorm:"size:191"`
	Grid          []billing.Line `gorm:"serializer:json;type:text"`
	Rationale     string         `gorm:"type:text"`
	Solution      string         `gorm:"type:text"`
	ProposedTotal float64
	BaselineTotal float64
	Timestamp     int64 `gorm:"index"`
}

func (transcriptRow) TableName() string { return "hunt_responses" }

func transcriptRowFrom(t session.Transcript) transcriptRow {
	return transcriptRow{
		ID:            t.ID,
		UserID:        t.UserID,
		UserName:      t.UserName,
		StoreID:       t.StoreID,
		DistrictID:    t.DistrictID,
		StoreName:     t.StoreName,
		ScenarioID:    t.ScenarioID,
		ScenarioTitle: t.ScenarioTitle,
		Grid:          billing.CloneLines(t.Grid),
		Rationale:     t.Rationale,
		Solution:      t.Solution,
		ProposedTotal: t.ProposedTotal,
		BaselineTotal: t.BaselineTotal,
		Timestamp:     t.Timestamp,
	}
}

func (r transcriptRow) toTranscript() session.Transcript {
	return session.Transcript{
		ID:            r.ID,
		UserID:        r.UserID,
		UserName:      r.UserName,
		StoreID:       r.StoreID,
		DistrictID:    r.DistrictID,
		StoreName:     r.StoreName,
		ScenarioID:    r.ScenarioID,
		ScenarioTitle: r.ScenarioTitle,
		Grid:          billing.CloneLines(r.Grid),
		Rationale:     r.Rationale,
		Solution:      r.Solution,
		ProposedTotal: r.ProposedTotal,
		BaselineTotal: r.BaselineTotal,
		Timestamp:     r.Timestamp,
	}
}

type scenarioRow struct {
	ID             string         `gorm:"primaryKey;size:64"`
	Title          string         `gorm:"size:191;not null"`
	Description    string         `gorm:"type:text"`
	PhoneNumber    string         `gorm:"size:64"`
	AccountData    []billing.Line `gorm:"serializer:json;type:text"`
	AIInstructions string         `gorm:"column:ai_instructions;type:text"`
	CreatedBy      string         `gorm:"size:64;index"`
	Position       int            `gorm:"not null"`
}

func (scenarioRow) TableName() string { return "custom_scenarios" }

func scenarioRowFrom(sc scenario.Scenario, position int) scenarioRow {
	return scenarioRow{
		ID:             sc.ID,
		Title:          sc.Title,
		Description:    sc.Description,
		PhoneNumber:    sc.PhoneNumber,
		AccountData:    billing.CloneLines(sc.AccountData),
		AIInstructions: sc.AIInstructions,
		CreatedBy:      sc.CreatedBy,
		Position:       position,
	}
}

func (r scenarioRow) toScenario() scenario.Scenario {
	return scenario.Scenario{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		PhoneNumber:    r.PhoneNumber,
		AccountData:    billing.CloneLines(r.AccountData),
		AIInstructions: r.AIInstructions,
		CreatedBy:      r.CreatedBy,
		IsCustom:       true,
	}
}

type metaRow struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:191"`
}

func (metaRow) TableName() string { return "meta" }
