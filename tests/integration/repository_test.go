package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vexelgames/polyrift/internal/db"
)

// CharacterRepositorySuite drives the characters repository against a
// real PostgreSQL schema.
type CharacterRepositorySuite struct {
	suite.Suite
	db   *db.DB
	repo *db.CharacterRepository
	ctx  context.Context
}

func (s *CharacterRepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	dbAddr := os.Getenv("DB_ADDR")
	if dbAddr == "" {
		dbAddr = acquireSchema(s.T())
	}

	if err := db.RunMigrations(s.ctx, dbAddr); err != nil {
		s.T().Fatalf("failed to run migrations: %v", err)
	}

	var err error
	s.db, err = db.New(s.ctx, dbAddr)
	if err != nil {
		s.T().Fatalf("failed to connect to database: %v", err)
	}
	s.repo = db.NewCharacterRepository(s.db.Pool())
}

func (s *CharacterRepositorySuite) SetupTest() {
	_, err := s.db.Pool().Exec(s.ctx, "TRUNCATE TABLE characters RESTART IDENTITY")
	s.Require().NoError(err)
}

func (s *CharacterRepositorySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *CharacterRepositorySuite) TestFirstCharacterIsPrimaryWithDefaults() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)
	s.Require().NotNil(c)

	s.True(c.IsPrimary)
	s.Equal("Kael", c.Name)
	s.Equal(int32(1), c.Level)
	s.Equal(int64(0), c.Experience)
	s.Equal(int64(100), c.ExperienceToNext)
	s.Equal(int32(100), c.BaseHealth)
	s.Equal(int32(50), c.BaseMana)
	s.Equal("basic", c.WeaponType)
	s.False(c.CreatedAt.IsZero())
}

func (s *CharacterRepositorySuite) TestSecondCharacterIsNotPrimary() {
	_, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)

	second, err := s.repo.Create(s.ctx, "user-1", "Mira", "sphere", "#00ffaa")
	s.Require().NoError(err)
	s.False(second.IsPrimary)

	chars, err := s.repo.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(chars, 2)
	s.Equal("Kael", chars[0].Name)
	s.Equal("Mira", chars[1].Name)
}

func (s *CharacterRepositorySuite) TestGetByIDMissingReturnsNil() {
	c, err := s.repo.GetByID(s.ctx, 9999)
	s.Require().NoError(err)
	s.Nil(c)
}

func (s *CharacterRepositorySuite) TestPromotingDemotesPreviousPrimary() {
	first, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)
	second, err := s.repo.Create(s.ctx, "user-1", "Mira", "sphere", "#00ffaa")
	s.Require().NoError(err)

	yes := true
	updated, err := s.repo.UpdateProfile(s.ctx, second.ID, nil, nil, nil, &yes)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.True(updated.IsPrimary)

	demoted, err := s.repo.GetByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.False(demoted.IsPrimary)

	primary, err := s.repo.GetPrimary(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().NotNil(primary)
	s.Equal(second.ID, primary.ID)
}

func (s *CharacterRepositorySuite) TestUpdateProfilePartialFields() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)

	name := "Kaelith"
	updated, err := s.repo.UpdateProfile(s.ctx, c.ID, &name, nil, nil, nil)
	s.Require().NoError(err)
	s.Require().NotNil(updated)

	s.Equal("Kaelith", updated.Name)
	// Untouched fields keep their values.
	s.Equal("cube", updated.Shape)
	s.Equal("#ffaa00", updated.Color)
	s.True(updated.IsPrimary)
}

func (s *CharacterRepositorySuite) TestUpdateProfileMissingCharacter() {
	name := "Ghost"
	updated, err := s.repo.UpdateProfile(s.ctx, 9999, &name, nil, nil, nil)
	s.Require().NoError(err)
	s.Nil(updated)
}

func (s *CharacterRepositorySuite) TestExperienceRunsLevelCurve() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)

	exp := int64(150)
	updated, err := s.repo.ApplyStats(s.ctx, c.ID, db.StatsDelta{Experience: &exp})
	s.Require().NoError(err)
	s.Require().NotNil(updated)

	s.Equal(int32(2), updated.Level)
	s.Equal(int64(50), updated.Experience)
	s.Equal(int64(120), updated.ExperienceToNext)

	// A large gain crosses several thresholds in one call.
	exp = 500
	updated, err = s.repo.ApplyStats(s.ctx, c.ID, db.StatsDelta{Experience: &exp})
	s.Require().NoError(err)

	s.Equal(int32(5), updated.Level)
	s.Equal(int64(114), updated.Experience)
	s.Equal(int64(207), updated.ExperienceToNext)
}

func (s *CharacterRepositorySuite) TestNegativeExperienceFloorsAtZero() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)

	exp := int64(-50)
	updated, err := s.repo.ApplyStats(s.ctx, c.ID, db.StatsDelta{Experience: &exp})
	s.Require().NoError(err)

	s.Equal(int64(0), updated.Experience)
	s.Equal(int32(1), updated.Level)
}

func (s *CharacterRepositorySuite) TestCountersAccumulate() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)

	kills, deaths, playTime := int32(3), int32(1), int64(90)
	weapon := "bow"
	updated, err := s.repo.ApplyStats(s.ctx, c.ID, db.StatsDelta{
		Kills:      &kills,
		Deaths:     &deaths,
		PlayTime:   &playTime,
		WeaponType: &weapon,
	})
	s.Require().NoError(err)

	s.Equal(int32(3), updated.TotalKills)
	s.Equal(int32(1), updated.TotalDeaths)
	s.Equal(int64(90), updated.PlayTimeSeconds)
	s.Equal("bow", updated.WeaponType)

	kills = 2
	updated, err = s.repo.ApplyStats(s.ctx, c.ID, db.StatsDelta{Kills: &kills})
	s.Require().NoError(err)
	s.Equal(int32(5), updated.TotalKills)
	s.Equal("bow", updated.WeaponType)
}

func (s *CharacterRepositorySuite) TestApplyStatsMissingCharacter() {
	exp := int64(10)
	updated, err := s.repo.ApplyStats(s.ctx, 9999, db.StatsDelta{Experience: &exp})
	s.Require().NoError(err)
	s.Nil(updated)
}

func (s *CharacterRepositorySuite) TestDeleteLastCharacterRejected() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)

	ok, err := s.repo.Delete(s.ctx, c.ID, "user-1")
	s.Require().ErrorIs(err, db.ErrLastCharacter)
	s.False(ok)

	chars, err := s.repo.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Len(chars, 1)
}

func (s *CharacterRepositorySuite) TestDeletePrimaryPromotesOldestRemaining() {
	first, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)
	second, err := s.repo.Create(s.ctx, "user-1", "Mira", "sphere", "#00ffaa")
	s.Require().NoError(err)
	_, err = s.repo.Create(s.ctx, "user-1", "Voss", "pyramid", "#aa00ff")
	s.Require().NoError(err)

	ok, err := s.repo.Delete(s.ctx, first.ID, "user-1")
	s.Require().NoError(err)
	s.True(ok)

	primary, err := s.repo.GetPrimary(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().NotNil(primary)
	s.Equal(second.ID, primary.ID)

	chars, err := s.repo.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Len(chars, 2)
}

func (s *CharacterRepositorySuite) TestDeleteForeignCharacterIsNoop() {
	c, err := s.repo.Create(s.ctx, "user-1", "Kael", "cube", "#ffaa00")
	s.Require().NoError(err)
	_, err = s.repo.Create(s.ctx, "user-2", "Mira", "sphere", "#00ffaa")
	s.Require().NoError(err)

	ok, err := s.repo.Delete(s.ctx, c.ID, "user-2")
	s.Require().NoError(err)
	s.False(ok)
}

func TestCharacterRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	suite.Run(t, new(CharacterRepositorySuite))
}
