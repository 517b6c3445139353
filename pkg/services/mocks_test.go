package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/models"
)

// mockFootprintRepo implements repositories.FootprintRepository for testing.
// conflictsRemaining makes UpdateScopes simulate that many concurrent
// writers: each conflict bumps the stored version before returning.
type mockFootprintRepo struct {
	footprints         map[uuid.UUID]*models.Footprint
	getErr             error
	updateErr          error
	conflictsRemaining int
	updateCalls        int
}

func newMockFootprintRepo(fps ...*models.Footprint) *mockFootprintRepo {
	m := &mockFootprintRepo{footprints: make(map[uuid.UUID]*models.Footprint)}
	for _, fp := range fps {
		m.footprints[fp.ID] = fp
	}
	return m
}

func (m *mockFootprintRepo) Create(_ context.Context, fp *models.Footprint) error {
	if fp.ID == uuid.Nil {
		fp.ID = uuid.New()
	}
	fp.Version = 1
	fp.RecomputeTotal()
	m.footprints[fp.ID] = fp
	return nil
}

func (m *mockFootprintRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Footprint, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	fp, ok := m.footprints[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *fp
	return &cp, nil
}

func (m *mockFootprintRepo) GetByCompanyPeriod(_ context.Context, companyID uuid.UUID, period string) (*models.Footprint, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, fp := range m.footprints {
		if fp.CompanyID == companyID && fp.ReportingPeriod == period {
			cp := *fp
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFootprintRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]*models.Footprint, error) {
	var result []*models.Footprint
	for _, fp := range m.footprints {
		if fp.CompanyID == companyID {
			cp := *fp
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockFootprintRepo) UpdateScopes(_ context.Context, fp *models.Footprint, expectedVersion int64) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.footprints[fp.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if m.conflictsRemaining > 0 {
		m.conflictsRemaining--
		stored.Version++
		return apperrors.ErrConflict
	}
	if stored.Version != expectedVersion {
		return apperrors.ErrConflict
	}
	stored.Scope1 = fp.Scope1
	stored.Scope2 = fp.Scope2
	stored.Scope3 = fp.Scope3
	stored.Total = fp.Total
	stored.Version = expectedVersion + 1
	fp.Version = stored.Version
	return nil
}

// mockSessionRepo implements repositories.SessionRepository for testing.
type mockSessionRepo struct {
	sessions  map[uuid.UUID]*models.Session
	messages  []*models.Message
	createErr error
	getErr    error
	appendErr error
	statusErr error
	totalsErr error
}

func newMockSessionRepo(sessions ...*models.Session) *mockSessionRepo {
	m := &mockSessionRepo{sessions: make(map[uuid.UUID]*models.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionRepo) CreateSession(_ context.Context, session *models.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return session, nil
}

func (m *mockSessionRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]*models.Session, error) {
	var result []*models.Session
	for _, s := range m.sessions {
		if s.CompanyID == companyID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.SessionStatus) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	session.Status = status
	return nil
}

func (m *mockSessionRepo) UpdateTotals(_ context.Context, id uuid.UUID, totals models.RunningTotals) error {
	if m.totalsErr != nil {
		return m.totalsErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	session.Totals = totals
	return nil
}

func (m *mockSessionRepo) AppendMessage(_ context.Context, msg *models.Message) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.ValidationStatus == "" {
		msg.ValidationStatus = models.ValidationPending
	}
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockSessionRepo) GetRecentMessages(_ context.Context, sessionID uuid.UUID, limit int) ([]*models.Message, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockSessionRepo) CountMessages(_ context.Context, sessionID uuid.UUID) (int, error) {
	count := 0
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

// messagesByRole filters the appended messages for assertions.
func (m *mockSessionRepo) messagesByRole(role models.MessageRole) []*models.Message {
	var result []*models.Message
	for _, msg := range m.messages {
		if msg.Role == role {
			result = append(result, msg)
		}
	}
	return result
}

// mockSeriesRepo implements repositories.SeriesRepository for testing.
type mockSeriesRepo struct {
	entries       []*models.ActivityEntry
	series        map[models.ActivityKind][]models.SeriesPoint
	monthlyPoints int
	documents     int
	reported      []models.ActivityKind
	seriesErr     error
	recordErr     error
	countErr      error
	reportedErr   error
}

func (m *mockSeriesRepo) RecordEntry(_ context.Context, entry *models.ActivityEntry) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockSeriesRepo) GetActivitySeries(_ context.Context, _ uuid.UUID, activity models.ActivityKind, _ int) ([]models.SeriesPoint, error) {
	if m.seriesErr != nil {
		return nil, m.seriesErr
	}
	return m.series[activity], nil
}

func (m *mockSeriesRepo) CountMonthlyDataPoints(_ context.Context, _ uuid.UUID) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.monthlyPoints, nil
}

func (m *mockSeriesRepo) CountDocuments(_ context.Context, _ uuid.UUID) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.documents, nil
}

func (m *mockSeriesRepo) ReportedActivities(_ context.Context, _ uuid.UUID, _ string) ([]models.ActivityKind, error) {
	if m.reportedErr != nil {
		return nil, m.reportedErr
	}
	return m.reported, nil
}

// mockCompanyRepo implements repositories.CompanyRepository for testing.
type mockCompanyRepo struct {
	companies map[uuid.UUID]*models.Company
	getErr    error
}

func newMockCompanyRepo(companies ...*models.Company) *mockCompanyRepo {
	m := &mockCompanyRepo{companies: make(map[uuid.UUID]*models.Company)}
	for _, c := range companies {
		m.companies[c.ID] = c
	}
	return m
}

func (m *mockCompanyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Company, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	company, ok := m.companies[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return company, nil
}

// mockBenchmarkRepo implements repositories.BenchmarkRepository with the
// same fallback chain as the real repository: exact range and region, then
// industry plus year, then industry at the prior year.
type mockBenchmarkRepo struct {
	rows     []*models.Benchmark
	upserted []*models.Benchmark
	findErr  error
}

func (m *mockBenchmarkRepo) Find(_ context.Context, industry string, employeeCount int, region string, year int) (*models.Benchmark, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, b := range m.rows {
		if b.Industry == industry && b.Region == region && b.Year == year && b.CoversEmployeeCount(employeeCount) {
			return b, nil
		}
	}
	for _, b := range m.rows {
		if b.Industry == industry && b.Year == year {
			return b, nil
		}
	}
	for _, b := range m.rows {
		if b.Industry == industry && b.Year == year-1 {
			return b, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockBenchmarkRepo) UpsertSeed(_ context.Context, b *models.Benchmark) error {
	m.upserted = append(m.upserted, b)
	return nil
}

// mockFactorRepo implements repositories.FactorRepository for testing.
type mockFactorRepo struct {
	factors        []*models.EmissionFactor
	upserted       []*models.EmissionFactor
	usage          map[uuid.UUID]int64
	lookupCalls    int
	incrementCalls int
	lookupErr      error
	upsertErr      error
}

func (m *mockFactorRepo) Lookup(_ context.Context, activity models.ActivityKind, subCategory, regionCode string, _ int) (*models.EmissionFactor, error) {
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, f := range m.factors {
		if f.ActivityType == activity && f.SubCategory == subCategory && f.RegionCode == regionCode {
			return f, nil
		}
	}
	for _, f := range m.factors {
		if f.ActivityType == activity {
			return f, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFactorRepo) IncrementUsage(_ context.Context, deltas map[uuid.UUID]int64) error {
	m.incrementCalls++
	if m.usage == nil {
		m.usage = make(map[uuid.UUID]int64)
	}
	for id, delta := range deltas {
		m.usage[id] += delta
	}
	return nil
}

func (m *mockFactorRepo) UpsertSeed(_ context.Context, factor *models.EmissionFactor) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if factor.ID == uuid.Nil {
		factor.ID = uuid.New()
	}
	m.upserted = append(m.upserted, factor)
	m.factors = append(m.factors, factor)
	return nil
}

func (m *mockFactorRepo) ListByActivity(_ context.Context, activity models.ActivityKind) ([]*models.EmissionFactor, error) {
	var result []*models.EmissionFactor
	for _, f := range m.factors {
		if f.ActivityType == activity {
			result = append(result, f)
		}
	}
	return result, nil
}
