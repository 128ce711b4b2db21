package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

type gatedWriter struct {
	entered chan struct{}
	release chan struct{}
}

func (w *gatedWriter) Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error) {
	close(w.entered)
	<-w.release
	return json.RawMessage(`{"id":10,"code":"1A","year_level":1}`), nil
}

func (w *gatedWriter) Delete(ctx context.Context, collection string, id int64) error {
	return errors.New("unreachable")
}

type invalidationRecorder struct {
	kinds []models.Kind
}

func (r *invalidationRecorder) Invalidate(ctx context.Context, kind models.Kind) {
	r.kinds = append(r.kinds, kind)
}

func completeTeacher() map[string]string {
	return map[string]string{
		"full_name":     "Dr. Ana Cruz",
		"title":         models.TitleAsstProfIV,
		"status":        models.StatusPermanent,
		"workload":      models.WorkloadFullTime,
		"is_senior_old": "true",
	}
}

func TestCreateTeacherScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.console.Session("ops")

	_, err := f.console.SelectTab(ctx, "ops", models.KindTeacher)
	require.NoError(t, err)
	_, err = f.console.OpenForm(ctx, "ops")
	require.NoError(t, err)
	f.edit(t, "ops", models.KindTeacher, completeTeacher())

	before, err := f.cache.Fetch(ctx, models.KindTeacher)
	require.NoError(t, err)
	require.Empty(t, before)

	result, err := f.mutations.Create(ctx, session, models.KindTeacher)
	require.NoError(t, err)
	require.NotNil(t, result.Entity)
	teacher, ok := result.Entity.(models.Teacher)
	require.True(t, ok)
	assert.NotZero(t, teacher.ID)
	assert.True(t, teacher.Active, "active is set by the store")
	assert.Equal(t, "Teacher created successfully", result.Message)

	after, err := f.cache.Fetch(ctx, models.KindTeacher)
	require.NoError(t, err)
	require.Len(t, after, 1)
	stored := after[0].(models.Teacher)
	assert.Equal(t, teacher.ID, stored.ID)
	assert.Equal(t, "Dr. Ana Cruz", stored.FullName)
	assert.Equal(t, models.TitleAsstProfIV, stored.Title)
	assert.True(t, stored.IsSeniorOld)

	state, err := f.console.State(ctx, "ops")
	require.NoError(t, err)
	assert.False(t, state.FormVisible)
	assert.Equal(t, f.registry.DefaultDraft(models.KindTeacher), state.Draft.Values)
	require.Len(t, state.Notifications, 1)
	assert.Equal(t, models.SeveritySuccess, state.Notifications[0].Severity)
	assert.Equal(t, "Teacher created successfully", state.Notifications[0].Message)

	calls := f.store.Calls()
	var posted map[string]interface{}
	for _, call := range calls {
		if call.Method == http.MethodPost {
			posted = call.Body
		}
	}
	require.NotNil(t, posted)
	assert.NotContains(t, posted, "id")
	assert.NotContains(t, posted, "active")
	assert.Equal(t, true, posted["is_senior_old"])
}

func TestCreateWithEmptyEchoStillSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.FailNext(http.MethodPost, "sections", http.StatusCreated, "")
	f.edit(t, "ops", models.KindSection, map[string]string{"code": "2B", "year_level": "2"})

	result, err := f.console.Submit(ctx, "ops", models.KindSection)
	require.NoError(t, err)
	assert.Nil(t, result.Entity)
	assert.Equal(t, "Section created successfully", result.Message)

	notes := f.console.Notifications(ctx, "ops")
	require.Len(t, notes, 1)
	assert.Equal(t, models.SeveritySuccess, notes[0].Severity)

	draft, err := f.console.Draft(ctx, "ops", models.KindSection)
	require.NoError(t, err)
	assert.Equal(t, f.registry.DefaultDraft(models.KindSection), draft.Values)
}

func TestCreateCourseWithoutUnitsIsWithheld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.edit(t, "ops", models.KindCourse, map[string]string{
		"course_code": "CS101",
		"course_name": "Intro",
		"course_type": models.CourseStandard,
		"units":       "",
	})

	_, err := f.console.Submit(ctx, "ops", models.KindCourse)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidationGap.Code))
	assert.Equal(t, http.StatusUnprocessableEntity, appErrors.FromError(err).Status)
	assert.Zero(t, f.store.CallCount(http.MethodPost, "courses"))
	assert.Empty(t, f.console.Notifications(ctx, "ops"), "a withheld submit shows nothing")

	draft, err := f.console.Draft(ctx, "ops", models.KindCourse)
	require.NoError(t, err)
	assert.Equal(t, "CS101", draft.Values.Get("course_code"), "draft is kept for correction")
	assert.False(t, draft.CanSubmit)
}

func TestDeleteMissingSectionSurfacesStoreDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.store.Seed("sections", map[string]interface{}{"code": "1A", "year_level": 1})

	_, err := f.cache.Fetch(ctx, models.KindSection)
	require.NoError(t, err)
	_, err = f.console.Draft(ctx, "ops", models.KindSection)
	require.NoError(t, err)
	f.edit(t, "ops", models.KindSection, map[string]string{"code": "2B"})

	_, err = f.console.Delete(ctx, "ops", models.KindSection, existing+100)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMutation.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "Section not found", appErr.Message)

	notes := f.console.Notifications(ctx, "ops")
	require.Len(t, notes, 1)
	assert.Equal(t, models.SeverityError, notes[0].Severity)
	assert.Equal(t, "Section not found", notes[0].Message)

	state := f.cache.State(models.KindSection)
	assert.False(t, state.Stale, "failed mutation leaves the cache alone")
	items, ok := f.cache.Peek(models.KindSection)
	require.True(t, ok)
	assert.Equal(t, []int64{existing}, ids(items))
	assert.Empty(t, f.publisher.published())

	draft, err := f.console.Draft(ctx, "ops", models.KindSection)
	require.NoError(t, err)
	assert.Equal(t, "2B", draft.Values.Get("code"), "failed mutation leaves the draft alone")
}

func TestMutationFailureFallsBackToGenericMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.edit(t, "ops", models.KindTeacher, completeTeacher())
	f.store.FailNext(http.MethodPost, "teachers", http.StatusInternalServerError, "upstream exploded")

	_, err := f.console.Submit(ctx, "ops", models.KindTeacher)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, appErrors.FromError(err).Status)

	notes := f.console.Notifications(ctx, "ops")
	require.Len(t, notes, 1)
	assert.Equal(t, "Failed to create teacher", notes[0].Message)

	draft, err := f.console.Draft(ctx, "ops", models.KindTeacher)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ana Cruz", draft.Values.Get("full_name"))
	assert.True(t, draft.CanSubmit, "operator can retry")
}

func TestDeleteThenRefetchOmitsID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.store.Seed("courses", map[string]interface{}{"course_code": "CS101", "units": 3})
	gone := f.store.Seed("courses", map[string]interface{}{"course_code": "CS102", "units": 3})

	before, err := f.cache.Fetch(ctx, models.KindCourse)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{keep, gone}, ids(before))

	result, err := f.console.Delete(ctx, "ops", models.KindCourse, gone)
	require.NoError(t, err)
	assert.Equal(t, "Course deleted successfully", result.Message)
	assert.Equal(t, []models.Kind{models.KindCourse}, f.publisher.published())

	after, err := f.cache.Fetch(ctx, models.KindCourse)
	require.NoError(t, err)
	assert.Equal(t, []int64{keep}, ids(after))
}

func TestCreateAssignmentThroughGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacherID, courseID, sectionID := seedReferences(t, f)

	_, err := f.console.AssignmentOptions(ctx, "ops")
	require.NoError(t, err)
	f.edit(t, "ops", models.KindAssignment, map[string]string{
		"teacher_id": strconv.FormatInt(teacherID, 10),
		"course_id":  strconv.FormatInt(courseID, 10),
		"section_id": strconv.FormatInt(sectionID, 10),
	})

	result, err := f.console.Submit(ctx, "ops", models.KindAssignment)
	require.NoError(t, err)
	assignment := result.Entity.(models.TeachingAssignment)
	assert.Equal(t, teacherID, assignment.TeacherID)
	assert.Equal(t, int64(7), assignment.TermID, "term defaults to the active term")
	assert.Equal(t, 1, f.store.CallCount(http.MethodPost, "teaching-assignments"))
	assert.Equal(t, "Assignment created successfully", result.Message)
}

func TestLocalAssignmentsNeverReachStore(t *testing.T) {
	f := newFixture(t, withLocalAssignments())
	ctx := context.Background()
	teacherID, courseID, sectionID := seedReferences(t, f)
	_, err := f.console.AssignmentOptions(ctx, "ops")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		f.edit(t, "ops", models.KindAssignment, map[string]string{
			"teacher_id": strconv.FormatInt(teacherID, 10),
			"course_id":  strconv.FormatInt(courseID, 10),
			"section_id": strconv.FormatInt(sectionID, 10),
		})
		_, err := f.console.Submit(ctx, "ops", models.KindAssignment)
		require.NoError(t, err)
	}

	items, err := f.cache.Fetch(ctx, models.KindAssignment)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(items))

	_, err = f.console.Delete(ctx, "ops", models.KindAssignment, 99)
	require.Error(t, err)
	assert.Equal(t, "Assignment not found", appErrors.FromError(err).Message)

	assert.Zero(t, f.store.CallCount(http.MethodPost, "teaching-assignments"))
	assert.Zero(t, f.store.CallCount(http.MethodGet, "teaching-assignments"))
	assert.Zero(t, f.store.CallCount(http.MethodDelete, "teaching-assignments"))
}

func TestSecondSubmitWhilePendingIsRejected(t *testing.T) {
	registry := NewKindRegistry(1, "")
	writer := &gatedWriter{entered: make(chan struct{}), release: make(chan struct{})}
	invalidations := &invalidationRecorder{}
	mutations := NewMutationService(registry, writer, invalidations, nil, nil, nil)
	console := NewConsoleService(registry, nil, nil, mutations, nil, ConsoleConfig{}, nil)
	defer console.Close()
	session := console.Session("ops")

	for field, value := range map[string]string{"code": "1A", "year_level": "1"} {
		_, err := console.EditField(context.Background(), "ops", models.KindSection, editReq(field, value))
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := mutations.Create(context.Background(), session, models.KindSection)
		done <- err
	}()
	<-writer.entered

	draft, err := console.Draft(context.Background(), "ops", models.KindSection)
	require.NoError(t, err)
	assert.True(t, draft.Pending)
	assert.False(t, draft.CanSubmit)

	_, err = mutations.Create(context.Background(), session, models.KindSection)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMutationPending.Code))

	close(writer.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("create did not finish")
	}
	assert.Equal(t, []models.Kind{models.KindSection}, invalidations.kinds)

	state, err := console.State(context.Background(), "ops")
	require.NoError(t, err)
	assert.Empty(t, state.Pending)
}

func TestCreateCompletesAfterOperatorNavigatesAway(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.edit(t, "ops", models.KindSection, map[string]string{"code": "1A", "year_level": "2"})
	_, err := f.console.SelectTab(context.Background(), "ops", models.KindSection)
	require.NoError(t, err)
	cancel()

	_, err = f.console.Submit(ctx, "ops", models.KindSection)
	require.NoError(t, err, "a cancelled request context does not abort the write")
	assert.Len(t, f.store.Items("sections"), 1)
}
