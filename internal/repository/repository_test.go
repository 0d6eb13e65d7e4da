package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/stats"
	"tantalus-boxing/internal/testutil"
)

var now = testutil.Now

type fixture struct {
	db          *sql.DB
	users       *UserRepository
	fighters    *FighterRepository
	fights      *FightRepository
	matchmaking *MatchmakingRepository
	tournaments *TournamentRepository
	media       *MediaRepository
	camps       *CampRepository
	disputes    *DisputeRepository
}

func (f *fixture) participantRows(t *testing.T, tournamentID string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&n))
	return n
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := zerolog.Nop()
	return &fixture{
		db:          db,
		users:       NewUserRepository(db, log),
		fighters:    NewFighterRepository(db, log),
		fights:      NewFightRepository(db, log),
		matchmaking: NewMatchmakingRepository(db, log),
		tournaments: NewTournamentRepository(db, log),
		media:       NewMediaRepository(db, log),
		camps:       NewCampRepository(db, log),
		disputes:    NewDisputeRepository(db, log),
	}
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "hash", Role: domain.RoleUser, CreatedAt: now}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) fighter(t *testing.T, name string, record domain.Record) *domain.FighterProfile {
	t.Helper()
	u := f.user(t, name+"@example.com")
	p := &domain.FighterProfile{
		UserID:      u.ID,
		Name:        name,
		Birthday:    time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC),
		HeightCM:    180,
		WeightKG:    70,
		ReachCM:     182,
		Stance:      domain.StanceOrthodox,
		Country:     "Ireland",
		Tier:        domain.TierAmateur,
		WeightClass: domain.Lightweight,
		Record:      record,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.fighters.Create(context.Background(), p))
	return p
}

func (f *fixture) tournament(t *testing.T, max int) *domain.Tournament {
	t.Helper()
	creator := f.user(t, fmt.Sprintf("promoter-%d@example.com", time.Now().UnixNano()))
	tour := &domain.Tournament{
		Name:            "Autumn Open",
		WeightClass:     domain.Lightweight,
		MinTier:         domain.TierAmateur,
		StartDate:       now.AddDate(0, 1, 0),
		EndDate:         now.AddDate(0, 1, 2),
		MaxParticipants: max,
		Status:          domain.TournamentUpcoming,
		CreatedBy:       creator.ID,
		CreatedAt:       now,
	}
	require.NoError(t, f.tournaments.Create(context.Background(), tour))
	return tour
}

func TestUserCreateAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.user(t, "ali@example.com")
	assert.Len(t, u.ID, 21)

	got, err := f.users.GetByEmail(ctx, "ali@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.True(t, got.CreatedAt.Equal(now))

	err = f.users.Create(ctx, &domain.User{Email: "ali@example.com", PasswordHash: "x", Role: domain.RoleUser, CreatedAt: now})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = f.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFighterProfileIsUniquePerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "mira", domain.Record{})

	exists, err := f.fighters.ExistsForUser(ctx, p.UserID)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *p
	err = f.fighters.Create(ctx, &dup)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := f.fighters.GetByUserID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierAmateur, got.Tier)
	assert.Equal(t, domain.Record{}, got.Record)
	assert.True(t, got.Birthday.Equal(p.Birthday))
}

func TestFighterUpdateAndTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "kai", domain.Record{Wins: 3})

	p.Nickname = "The Hammer"
	p.WeightKG = 72
	p.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, f.fighters.Update(ctx, p))
	require.NoError(t, f.fighters.UpdateTier(ctx, p.ID, domain.TierPro, now.Add(2*time.Hour)))

	got, err := f.fighters.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Hammer", got.Nickname)
	assert.Equal(t, 72, got.WeightKG)
	assert.Equal(t, domain.TierPro, got.Tier)
	assert.Equal(t, 3, got.Wins, "profile edits never touch the record")

	assert.ErrorIs(t, f.fighters.UpdateTier(ctx, "missing", domain.TierPro, now), ErrNotFound)
}

func TestRankingsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fighter(t, "low", domain.Record{Points: 10, Wins: 1, WinPercentage: 100})
	f.fighter(t, "tied-better-pct", domain.Record{Points: 50, Wins: 5, WinPercentage: 83.33})
	f.fighter(t, "tied-worse-pct", domain.Record{Points: 50, Wins: 6, WinPercentage: 60})
	f.fighter(t, "top", domain.Record{Points: 90, Wins: 9, WinPercentage: 90})

	ranked, err := f.fighters.Rankings(ctx, "", 0)
	require.NoError(t, err)
	names := make([]string, len(ranked))
	for i, p := range ranked {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"top", "tied-better-pct", "tied-worse-pct", "low"}, names)

	heavy, err := f.fighters.Rankings(ctx, domain.Heavyweight, 10)
	require.NoError(t, err)
	assert.Empty(t, heavy)

	top2, err := f.fighters.Rankings(ctx, domain.Lightweight, 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)
}

func TestCreateFightUpdatesRecordAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "rico", domain.Record{Wins: 5, Losses: 2, Points: 50, Knockouts: 3})

	fight := &domain.FightRecord{
		FighterID:    p.ID,
		OpponentName: "Sam Stone",
		FightDate:    now.AddDate(0, 0, -3),
		Result:       domain.ResultWin,
		Method:       domain.MethodKO,
		Round:        3,
		PointsEarned: 10,
		CreatedAt:    now,
	}
	updated, err := f.fights.CreateWithStats(ctx, fight, func(prior domain.Record) domain.Record {
		return stats.Apply(prior, stats.OutcomeOf(*fight))
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fight.ID)
	assert.Equal(t, 6, updated.Wins)
	assert.Equal(t, 75.0, updated.WinPercentage)
	assert.Equal(t, 50.0, updated.KOPercentage)

	stored, err := f.fighters.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Record, stored.Record)

	fights, err := f.fights.ListByFighter(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, fights, 1)
	assert.Equal(t, domain.MethodKO, fights[0].Method)
}

func TestCreateFightForMissingFighterWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fight := &domain.FightRecord{FighterID: "missing", OpponentName: "X", FightDate: now,
		Result: domain.ResultLoss, Method: domain.MethodUD, Round: 12, CreatedAt: now}
	_, err := f.fights.CreateWithStats(ctx, fight, func(r domain.Record) domain.Record { return r })
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM fight_records`).Scan(&n))
	assert.Zero(t, n)
}

func TestConcurrentFightsKeepCountersConsistent(t *testing.T) {
	f := newFixture(t)
	p := f.fighter(t, "busy", domain.Record{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fight := &domain.FightRecord{FighterID: p.ID, OpponentName: fmt.Sprintf("opp-%d", i),
				FightDate: now, Result: domain.ResultWin, Method: domain.MethodUD, Round: 10,
				PointsEarned: 3, CreatedAt: now}
			_, err := f.fights.CreateWithStats(context.Background(), fight, func(prior domain.Record) domain.Record {
				return stats.Apply(prior, stats.OutcomeOf(*fight))
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.fighters.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Wins)
	assert.Equal(t, 24, got.Points)
	assert.Equal(t, 8, got.CurrentStreak)
}

func TestMatchmakingSinglePendingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "lee", domain.Record{})

	preferred := now.AddDate(0, 0, 7)
	first := &domain.MatchmakingRequest{FighterID: p.ID, WeightClass: domain.Lightweight,
		PreferredDate: &preferred, Status: domain.MatchmakingPending, CreatedAt: now}
	require.NoError(t, f.matchmaking.Create(ctx, first))

	pending, err := f.matchmaking.HasPending(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	second := &domain.MatchmakingRequest{FighterID: p.ID, WeightClass: domain.Lightweight,
		Status: domain.MatchmakingPending, CreatedAt: now}
	assert.ErrorIs(t, f.matchmaking.Create(ctx, second), ErrDuplicate)

	got, err := f.matchmaking.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PreferredDate)
	assert.True(t, got.PreferredDate.Equal(preferred))

	require.NoError(t, f.matchmaking.Cancel(ctx, first.ID, p.ID))
	assert.ErrorIs(t, f.matchmaking.Cancel(ctx, first.ID, p.ID), ErrStale)

	// Once cancelled, a new pending request is allowed.
	require.NoError(t, f.matchmaking.Create(ctx, second))
	assert.Nil(t, second.PreferredDate)
}

func TestCancelSomeoneElsesRequestIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.fighter(t, "owner", domain.Record{})
	other := f.fighter(t, "other", domain.Record{})

	req := &domain.MatchmakingRequest{FighterID: owner.ID, WeightClass: domain.Lightweight,
		Status: domain.MatchmakingPending, CreatedAt: now}
	require.NoError(t, f.matchmaking.Create(ctx, req))

	assert.ErrorIs(t, f.matchmaking.Cancel(ctx, req.ID, other.ID), ErrNotFound)
	assert.ErrorIs(t, f.matchmaking.Cancel(ctx, "missing", other.ID), ErrNotFound)
}

func TestJoinTournamentRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.tournament(t, 4)
	p := f.fighter(t, "ana", domain.Record{})

	joined, err := f.tournaments.Join(ctx, tour.ID, p.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, joined.CurrentParticipants)

	_, err = f.tournaments.Join(ctx, tour.ID, p.ID, now)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := f.tournaments.GetByID(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentParticipants, "a rejected join must not bump the counter")

	ok, err := f.tournaments.IsParticipant(ctx, tour.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 4)

	fighters := make([]*domain.FighterProfile, 10)
	for i := range fighters {
		fighters[i] = f.fighter(t, fmt.Sprintf("fighter-%d", i), domain.Record{})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var joined, full int
	for _, p := range fighters {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.tournaments.Join(context.Background(), tour.ID, id, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case assert.ErrorIs(t, err, ErrFull):
				full++
			}
		}(p.ID)
	}
	wg.Wait()

	assert.Equal(t, 4, joined)
	assert.Equal(t, 6, full)

	got, err := f.tournaments.GetByID(context.Background(), tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentParticipants)

	assert.Equal(t, 4, f.participantRows(t, tour.ID))
}

func TestConcurrentDuplicateJoinsInsertOnce(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 8)
	p := f.fighter(t, "eager", domain.Record{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok int
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tournaments.Join(context.Background(), tour.ID, p.ID, now)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrDuplicate)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	got, err := f.tournaments.GetByID(context.Background(), tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentParticipants)
}

func TestListTournamentsByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tournament(t, 4)
	f.tournament(t, 8)

	all, err := f.tournaments.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := f.tournaments.List(ctx, domain.TournamentCompleted, 0)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestMediaModeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "vid", domain.Record{})

	id, err := f.media.NewID()
	require.NoError(t, err)
	asset := &domain.MediaAsset{ID: id, FighterID: p.ID, Title: "Sparring", URL: "http://store/x.mp4",
		MimeType: "video/mp4", SizeBytes: 1024, Status: domain.MediaPending, CreatedAt: now}
	require.NoError(t, f.media.Create(ctx, asset))
	assert.Equal(t, id, asset.ID)

	require.NoError(t, f.media.Moderate(ctx, id, domain.MediaApproved))
	assert.ErrorIs(t, f.media.Moderate(ctx, id, domain.MediaRejected), ErrStale)
	assert.ErrorIs(t, f.media.Moderate(ctx, "missing", domain.MediaRejected), ErrNotFound)

	list, err := f.media.ListByFighter(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.MediaApproved, list[0].Status)
}

func TestTrainingCamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "camp", domain.Record{})

	camp := &domain.TrainingCamp{FighterID: p.ID, Name: "Altitude block", StartDate: now,
		EndDate: now.AddDate(0, 0, 21), CreatedAt: now}
	require.NoError(t, f.camps.Create(ctx, camp))

	camps, err := f.camps.ListByFighter(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, camps, 1)
	assert.Equal(t, "Altitude block", camps[0].Name)
}

func TestDisputeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.fighter(t, "disputer", domain.Record{})

	fight := &domain.FightRecord{FighterID: p.ID, OpponentName: "Judge's Favourite", FightDate: now,
		Result: domain.ResultLoss, Method: domain.MethodSD, Round: 12, CreatedAt: now}
	_, err := f.fights.CreateWithStats(ctx, fight, func(r domain.Record) domain.Record { return r })
	require.NoError(t, err)

	d := &domain.Dispute{FightRecordID: fight.ID, FiledBy: p.UserID, Reason: domain.ReasonScoring,
		Description: "Two judges scored round 7 for the wrong corner.", Status: domain.DisputePending, CreatedAt: now}
	require.NoError(t, f.disputes.Create(ctx, d))

	again := *d
	assert.ErrorIs(t, f.disputes.Create(ctx, &again), ErrDuplicate, "one open dispute per fight")

	resolvedAt := now.Add(time.Hour)
	d.Status = domain.DisputeResolved
	d.Resolution = "Scorecards corrected."
	d.ResolvedBy = "admin-1"
	d.ResolvedAt = &resolvedAt
	require.NoError(t, f.disputes.Transition(ctx, d, domain.DisputePending))
	assert.ErrorIs(t, f.disputes.Transition(ctx, d, domain.DisputePending), ErrStale)

	got, err := f.disputes.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(resolvedAt))

	pending, err := f.disputes.List(ctx, domain.DisputePending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The closed dispute no longer blocks a new one on the same fight.
	fresh := &domain.Dispute{FightRecordID: fight.ID, FiledBy: p.UserID, Reason: domain.ReasonOther,
		Description: "Filing again with new footage attached.", Status: domain.DisputePending, CreatedAt: now}
	require.NoError(t, f.disputes.Create(ctx, fresh))
}
