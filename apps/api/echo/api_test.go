package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/announcement"
	"github.com/mwalimu/darasa/core/assignment"
	"github.com/mwalimu/darasa/core/chat"
	"github.com/mwalimu/darasa/core/device"
	"github.com/mwalimu/darasa/core/hub"
	"github.com/mwalimu/darasa/core/subject"
	"github.com/mwalimu/darasa/core/submission"
	"github.com/mwalimu/darasa/core/user"
	"github.com/mwalimu/darasa/storage/files"
)

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

// In-memory repositories

type memUserRepo struct {
	nextID int
	users  map[int]user.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: make(map[int]user.User)} }

func (r *memUserRepo) CheckUniqueness(_ context.Context, name, email, studentID string, excluded ...user.User) error {
	skip := func(id int) bool {
		for _, usr := range excluded {
			if usr.ID == id {
				return true
			}
		}
		return false
	}
	for id, usr := range r.users {
		if skip(id) {
			continue
		}
		if usr.Name == name {
			return user.ErrNameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
		if studentID != "" && usr.StudentID != nil && *usr.StudentID == studentID {
			return user.ErrStudentIDExists
		}
	}
	return nil
}

func (r *memUserRepo) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	r.nextID++
	usr.ID = r.nextID
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *memUserRepo) QueryUsers(_ context.Context, filter *user.QueryFilter) ([]user.User, error) {
	var out []user.User
	for id := 1; id <= r.nextID; id++ {
		usr, ok := r.users[id]
		if !ok {
			continue
		}
		if filter != nil && filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		out = append(out, usr)
	}
	return out, nil
}

func (r *memUserRepo) GetUserByID(_ context.Context, id int) (user.User, error) {
	usr, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	for _, usr := range r.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *memUserRepo) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	if _, ok := r.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	r.users[usr.ID] = usr
	return usr, nil
}

type memSubjectRepo struct {
	nextID   int
	subjects map[int]subject.Subject
}

func newMemSubjectRepo() *memSubjectRepo {
	return &memSubjectRepo{subjects: make(map[int]subject.Subject)}
}

func (r *memSubjectRepo) CreateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	r.nextID++
	s.ID = r.nextID
	r.subjects[s.ID] = s
	return s, nil
}

func (r *memSubjectRepo) GetSubjectByID(_ context.Context, id int) (subject.Subject, error) {
	s, ok := r.subjects[id]
	if !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	return s, nil
}

func (r *memSubjectRepo) QueryByTeacher(_ context.Context, teacherID int) ([]subject.Subject, error) {
	var out []subject.Subject
	for id := r.nextID; id >= 1; id-- {
		if s, ok := r.subjects[id]; ok && s.TeacherID == teacherID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubjectRepo) QueryVisibleTo(_ context.Context, gradeLevel, classroom int) ([]subject.Subject, error) {
	var out []subject.Subject
	for id := 1; id <= r.nextID; id++ {
		s, ok := r.subjects[id]
		if !ok {
			continue
		}
		switch s.VisibilityMode {
		case subject.VisibilityAll:
			out = append(out, s)
		case subject.VisibilityGrade:
			if s.TargetGradeLevel != nil && *s.TargetGradeLevel == gradeLevel {
				out = append(out, s)
			}
		case subject.VisibilityClassroom:
			if s.TargetGradeLevel != nil && *s.TargetGradeLevel == gradeLevel &&
				s.TargetClassroom != nil && *s.TargetClassroom == classroom {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type memChatRepo struct {
	nextID int
	msgs   []chat.Message
}

func (r *memChatRepo) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	r.nextID++
	msg.ID = r.nextID
	r.msgs = append(r.msgs, msg)
	return msg, nil
}

func (r *memChatRepo) QueryThread(_ context.Context, user1, user2 int) ([]chat.Message, error) {
	var out []chat.Message
	for _, msg := range r.msgs {
		if (msg.SenderID == user1 && msg.ReceiverID == user2) ||
			(msg.SenderID == user2 && msg.ReceiverID == user1) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type memDeviceRepo struct {
	nextID int
	tokens map[string]device.Token // keyed by userID:token
}

func newMemDeviceRepo() *memDeviceRepo { return &memDeviceRepo{tokens: make(map[string]device.Token)} }

func (r *memDeviceRepo) UpsertToken(_ context.Context, t device.Token) (device.Token, error) {
	key := strconv.Itoa(t.UserID) + ":" + t.Token
	if existing, ok := r.tokens[key]; ok {
		existing.CreatedAt = t.CreatedAt
		r.tokens[key] = existing
		return existing, nil
	}
	r.nextID++
	t.ID = r.nextID
	r.tokens[key] = t
	return t, nil
}

func (r *memDeviceRepo) ListTokens(context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, t := range r.tokens {
		if !seen[t.Token] {
			seen[t.Token] = true
			out = append(out, t.Token)
		}
	}
	return out, nil
}

type memAnnouncementRepo struct {
	nextID int
	anns   []announcement.Announcement
}

func (r *memAnnouncementRepo) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	r.nextID++
	a.ID = r.nextID
	r.anns = append(r.anns, a)
	return a, nil
}

func (r *memAnnouncementRepo) QueryBySubject(_ context.Context, subjectID int) ([]announcement.Announcement, error) {
	var out []announcement.Announcement
	for i := len(r.anns) - 1; i >= 0; i-- {
		if r.anns[i].SubjectID == subjectID {
			out = append(out, r.anns[i])
		}
	}
	return out, nil
}

type memAssignmentRepo struct {
	nextID      int
	assignments map[int]assignment.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assignments: make(map[int]assignment.Assignment)}
}

func (r *memAssignmentRepo) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	r.nextID++
	a.ID = r.nextID
	r.assignments[a.ID] = a
	return a, nil
}

func (r *memAssignmentRepo) GetAssignmentByID(_ context.Context, id int) (assignment.Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return a, nil
}

func (r *memAssignmentRepo) QueryBySubject(_ context.Context, subjectID int) ([]assignment.Assignment, error) {
	var out []assignment.Assignment
	for id := r.nextID; id >= 1; id-- {
		if a, ok := r.assignments[id]; ok && a.SubjectID == subjectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAssignmentRepo) QueryTeacherDashboard(context.Context, int) ([]assignment.DashboardRow, error) {
	return nil, nil
}

type memSubmissionRepo struct {
	nextID int
	subs   map[int]submission.Submission
	files  map[int][]string
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{subs: make(map[int]submission.Submission), files: make(map[int][]string)}
}

func (r *memSubmissionRepo) GetSubmission(_ context.Context, assignmentID, studentID int) (submission.Submission, error) {
	for _, s := range r.subs {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s, nil
		}
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (r *memSubmissionRepo) CreateSubmission(_ context.Context, s submission.Submission) (submission.Submission, error) {
	r.nextID++
	s.ID = r.nextID
	r.subs[s.ID] = s
	return s, nil
}

func (r *memSubmissionRepo) ResetSubmission(_ context.Context, id int) error {
	s, ok := r.subs[id]
	if !ok {
		return submission.ErrNotFound
	}
	s.Grade, s.Feedback = nil, nil
	r.subs[id] = s
	return nil
}

func (r *memSubmissionRepo) ReplaceFiles(_ context.Context, submissionID int, paths []string) error {
	r.files[submissionID] = paths
	return nil
}

func (r *memSubmissionRepo) QueryByAssignment(_ context.Context, assignmentID int) ([]submission.Submission, error) {
	var out []submission.Submission
	for id := 1; id <= r.nextID; id++ {
		if s, ok := r.subs[id]; ok && s.AssignmentID == assignmentID {
			s.FilePaths = r.files[id]
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubmissionRepo) GradeSubmission(_ context.Context, id int, grade, feedback string) error {
	s, ok := r.subs[id]
	if !ok {
		return submission.ErrNotFound
	}
	s.Grade, s.Feedback = &grade, &feedback
	r.subs[id] = s
	return nil
}

func (r *memSubmissionRepo) QueryGradeRows(context.Context, int) ([]submission.GradeRow, error) {
	return nil, nil
}

// Test server

type testEnv struct {
	conf        *core.Config
	users       *memUserRepo
	subjects    *memSubjectRepo
	chats       *memChatRepo
	devices     *memDeviceRepo
	assignments *memAssignmentRepo
	submissions *memSubmissionRepo
	srv         Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Upload.Dir = t.TempDir()

	env := &testEnv{
		conf:        conf,
		users:       newMemUserRepo(),
		subjects:    newMemSubjectRepo(),
		chats:       &memChatRepo{},
		devices:     newMemDeviceRepo(),
		assignments: newMemAssignmentRepo(),
		submissions: newMemSubmissionRepo(),
	}

	uploads, err := files.NewStore(conf)
	require.NoError(t, err)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	h := hub.NewHub(testLogger{}, nil)
	deviceSvc := device.NewService(env.devices)

	env.srv = NewServer(ServerDeps{
		Conf:    conf,
		Logger:  testLogger{},
		Hub:     h,
		Uploads: uploads,

		UserSvc:         user.NewService(env.users, nil, conf),
		SubjectSvc:      subject.NewService(env.subjects),
		AssignmentSvc:   assignment.NewService(env.assignments),
		SubmissionSvc:   submission.NewService(env.submissions),
		ChatSvc:         chat.NewService(env.chats, h),
		AnnouncementSvc: announcement.NewService(&memAnnouncementRepo{}, h, deviceSvc, nil, testLogger{}),
		DeviceSvc:       deviceSvc,

		Validate:   validate,
		Translator: translator,
	})
	return env
}

const testPassword = "Str0ngPa$$w0rd"

func (env *testEnv) seedStudent(t *testing.T, name, email, studentID string, gradeLevel, classroom int) user.User {
	t.Helper()
	usr := user.User{
		Name: name, Email: email, Role: user.RoleStudent,
		GradeLevel: &gradeLevel, Classroom: &classroom, StudentID: &studentID,
	}
	return env.seed(t, usr)
}

func (env *testEnv) seedTeacher(t *testing.T, name, email string) user.User {
	t.Helper()
	return env.seed(t, user.User{Name: name, Email: email, Role: user.RoleTeacher})
}

func (env *testEnv) seed(t *testing.T, usr user.User) user.User {
	t.Helper()
	require.NoError(t, usr.SetPassword(testPassword))
	created, err := env.users.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return created
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(env.conf, usr))
	require.NoError(t, err)
	return token
}

func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func jsonMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func jsonList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var l []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	return l
}

// Tests

func Test_API_authRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/v1/users", "/v1/subjects", "/v1/messages/1", "/v1/dashboard"} {
		rec := env.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "missing or malformed jwt", jsonMap(t, rec)["error"], path)
	}
}

func Test_userApi_register(t *testing.T) {
	env := newTestEnv(t)

	t.Run("student", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/register", "", echo.Map{
			"name": "Asha Juma", "email": "Asha@Example.COM",
			"password": testPassword, "password_confirm": testPassword,
			"role": "student", "grade_level": 4, "classroom": 2, "student_id": "40123",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		assert.Equal(t, "asha@example.com", body["email"])
		assert.Equal(t, "student", body["role"])
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "PasswordHash")
	})

	t.Run("missing student class info", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/register", "", echo.Map{
			"name": "Neema Said", "email": "neema@example.com",
			"password": testPassword, "password_confirm": testPassword,
			"role": "student",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		for _, field := range []string{"grade_level", "classroom", "student_id"} {
			assert.Contains(t, body, field)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/register", "", echo.Map{
			"name": "Asha J.", "email": "asha@example.com",
			"password": testPassword, "password_confirm": testPassword,
			"role": "student", "grade_level": 4, "classroom": 2, "student_id": "40199",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, jsonMap(t, rec), "email")
	})

	t.Run("teacher needs no class info", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/register", "", echo.Map{
			"name": "Bakari Omari", "email": "bakari@example.com",
			"password": testPassword, "password_confirm": testPassword,
			"role": "teacher", "subject": "Mathematics",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Mathematics", jsonMap(t, rec)["subject"])
	})
}

func Test_userApi_login(t *testing.T) {
	env := newTestEnv(t)
	usr := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")

	t.Run("ok", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", echo.Map{
			"email": "Bakari@Example.com", "password": testPassword,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		assert.NotEmpty(t, body["token"])
		assert.Equal(t, float64(usr.ID), body["user"].(map[string]interface{})["id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", echo.Map{
			"email": "bakari@example.com", "password": "nope",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "authentication failed", jsonMap(t, rec)["error"])
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", echo.Map{
			"email": "ghost@example.com", "password": testPassword,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "authentication failed", jsonMap(t, rec)["error"])
	})
}

func Test_userApi_queryAndRetrieve(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")
	env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)
	token := env.token(t, teacher)

	rec := env.request(t, http.MethodGet, "/v1/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, jsonList(t, rec), 2)

	rec = env.request(t, http.MethodGet, "/v1/users?role=student", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	students := jsonList(t, rec)
	require.Len(t, students, 1)
	assert.Equal(t, "Asha Juma", students[0]["name"])

	rec = env.request(t, http.MethodGet, "/v1/users/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := newTestEnv(t)
	usr := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")

	rec := env.request(t, http.MethodPost, "/v1/users/token-refresh", env.token(t, usr), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, jsonMap(t, rec)["token"])
}

func Test_subjectApi(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")
	student := env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)
	teacherToken, studentToken := env.token(t, teacher), env.token(t, student)

	t.Run("students cannot create", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/subjects", studentToken, echo.Map{"name": "Hisabati"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("teacher creates", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/subjects", teacherToken, echo.Map{
			"name": "Hisabati", "teacher_id": 999, // ignored; taken from the token
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		assert.Equal(t, float64(teacher.ID), body["teacher_id"])
		assert.Equal(t, "all", body["visibility_mode"])
	})

	t.Run("student sees visibility-filtered list", func(t *testing.T) {
		for _, m := range []echo.Map{
			{"name": "Kiswahili", "visibility_mode": "grade", "target_grade_level": 4},
			{"name": "Fizikia", "visibility_mode": "grade", "target_grade_level": 5},
			{"name": "Historia", "visibility_mode": "classroom", "target_grade_level": 4, "target_classroom": 2},
			{"name": "Jiografia", "visibility_mode": "classroom", "target_grade_level": 4, "target_classroom": 3},
		} {
			rec := env.request(t, http.MethodPost, "/v1/subjects", teacherToken, m)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		}

		rec := env.request(t, http.MethodGet, "/v1/subjects", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var names []string
		for _, s := range jsonList(t, rec) {
			names = append(names, s["name"].(string))
		}
		// grade 4, classroom 2: the open subject, their grade's, their classroom's
		assert.ElementsMatch(t, []string{"Hisabati", "Kiswahili", "Historia"}, names)
	})

	t.Run("teacher sees own subjects", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/subjects", teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, jsonList(t, rec), 5)
	})
}

func Test_chatApi(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")
	student := env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)

	rec := env.request(t, http.MethodPost, "/v1/messages", env.token(t, student), echo.Map{
		"sender_id": 999, // ignored; taken from the token
		"receiver_id": teacher.ID,
		"content":     "nina swali",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := jsonMap(t, rec)
	assert.Equal(t, float64(student.ID), body["sender_id"])

	// both parties read the same thread
	for _, usr := range []user.User{teacher, student} {
		other := teacher
		if usr.ID == teacher.ID {
			other = student
		}
		rec := env.request(t, http.MethodGet, "/v1/messages/"+strconv.Itoa(other.ID), env.token(t, usr), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		msgs := jsonList(t, rec)
		require.Len(t, msgs, 1)
		assert.Equal(t, "nina swali", msgs[0]["content"])
	}

	t.Run("content required", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/messages", env.token(t, student), echo.Map{
			"receiver_id": teacher.ID,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, jsonMap(t, rec), "content")
	})
}

func Test_deviceApi(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)
	token := env.token(t, student)

	rec := env.request(t, http.MethodPost, "/v1/devices", token, echo.Map{"token": "fcm-tok-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(student.ID), jsonMap(t, rec)["user_id"])

	// re-registering the same token is a refresh, not a new row
	rec = env.request(t, http.MethodPost, "/v1/devices", token, echo.Map{"token": "fcm-tok-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	tokens, err := env.devices.ListTokens(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	t.Run("token required", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/devices", token, echo.Map{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, jsonMap(t, rec), "token")
	})
}

func Test_announcementApi(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")
	other := env.seedTeacher(t, "Neema Said", "neema@example.com")
	student := env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)

	subj, err := subject.NewService(env.subjects).Create(context.Background(), subject.NewSubject{
		Name: "Hisabati", TeacherID: owner.ID, VisibilityMode: subject.VisibilityAll,
	})
	require.NoError(t, err)

	t.Run("owner announces", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/announcements", env.token(t, owner), echo.Map{
			"subject_id": subj.ID, "content": "mtihani ijumaa",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, float64(owner.ID), jsonMap(t, rec)["teacher_id"])
	})

	t.Run("non-owner teacher forbidden", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/announcements", env.token(t, other), echo.Map{
			"subject_id": subj.ID, "content": "mtihani ijumaa",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student forbidden", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/announcements", env.token(t, student), echo.Map{
			"subject_id": subj.ID, "content": "mtihani ijumaa",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown subject", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/announcements", env.token(t, owner), echo.Map{
			"subject_id": 999, "content": "mtihani ijumaa",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("listing", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/subjects/"+strconv.Itoa(subj.ID)+"/announcements", env.token(t, student), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, jsonList(t, rec), 1)
	})
}

func (env *testEnv) multipart(t *testing.T, method, path, token string, fields map[string]string, fileFields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, names := range fileFields {
		for _, name := range names {
			fw, err := w.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = fw.Write([]byte("contents of " + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func Test_assignmentApi(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")
	other := env.seedTeacher(t, "Neema Said", "neema@example.com")
	student := env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)

	subj, err := subject.NewService(env.subjects).Create(context.Background(), subject.NewSubject{
		Name: "Hisabati", TeacherID: owner.ID, VisibilityMode: subject.VisibilityAll,
	})
	require.NoError(t, err)
	path := "/v1/subjects/" + strconv.Itoa(subj.ID) + "/assignments"

	t.Run("owner creates with worksheet", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, path, env.token(t, owner), map[string]string{
			"title":        "Zoezi la 1",
			"deadline":     "2026-09-15",
			"grading_mode": "percent",
			"max_score":    "50",
		}, map[string][]string{"worksheet": {"zoezi.pdf"}})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		assert.Equal(t, "Zoezi la 1", body["title"])
		assert.Equal(t, float64(50), body["max_score"])
		assert.NotEmpty(t, body["worksheet_url"])
	})

	t.Run("title required", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, path, env.token(t, owner), map[string]string{
			"grading_mode": "check",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, jsonMap(t, rec), "title")
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, path, env.token(t, other), map[string]string{
			"title": "Zoezi",
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student forbidden", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, path, env.token(t, student), map[string]string{
			"title": "Zoezi",
		}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown subject", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, "/v1/subjects/999/assignments", env.token(t, owner), map[string]string{
			"title": "Zoezi",
		}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("students list assignments", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, path, env.token(t, student), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, jsonList(t, rec), 1)
	})
}

func Test_submissionApi(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher(t, "Bakari Omari", "bakari@example.com")
	student := env.seedStudent(t, "Asha Juma", "asha@example.com", "40123", 4, 2)

	subj, err := subject.NewService(env.subjects).Create(context.Background(), subject.NewSubject{
		Name: "Hisabati", TeacherID: teacher.ID, VisibilityMode: subject.VisibilityAll,
	})
	require.NoError(t, err)
	a, err := assignment.NewService(env.assignments).Create(context.Background(), assignment.NewAssignment{
		SubjectID: subj.ID, Title: "Zoezi la 1", GradingMode: assignment.GradingScore10,
	}, "")
	require.NoError(t, err)

	subPath := "/v1/assignments/" + strconv.Itoa(a.ID) + "/submissions"
	studentToken, teacherToken := env.token(t, student), env.token(t, teacher)

	t.Run("files required", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, subPath, studentToken, nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, jsonMap(t, rec), "files")
	})

	t.Run("too many files", func(t *testing.T) {
		var names []string
		for i := 0; i <= env.conf.Upload.MaxFiles; i++ {
			names = append(names, "file"+strconv.Itoa(i)+".pdf")
		}
		rec := env.multipart(t, http.MethodPost, subPath, studentToken, nil, map[string][]string{"files": names})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, jsonMap(t, rec), "files")
	})

	t.Run("teachers cannot submit", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, subPath, teacherToken, nil, map[string][]string{"files": {"a.pdf"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var submissionID int
	t.Run("student submits", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, subPath, studentToken, nil,
			map[string][]string{"files": {"jibu.pdf", "hesabu.xlsx"}})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		assert.Equal(t, float64(student.ID), body["student_id"])
		assert.Len(t, body["files"], 2)
		submissionID = int(body["id"].(float64))
	})

	t.Run("teacher grades", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/submissions/"+strconv.Itoa(submissionID)+"/grade",
			teacherToken, echo.Map{"grade": "8", "feedback": "vizuri"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})

	t.Run("resubmission replaces files and clears grade", func(t *testing.T) {
		rec := env.multipart(t, http.MethodPost, subPath, studentToken, nil,
			map[string][]string{"files": {"jibu-v2.pdf"}})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		body := jsonMap(t, rec)
		assert.Equal(t, float64(submissionID), body["id"]) // same submission, not a new one
		assert.Len(t, body["files"], 1)

		recs := env.request(t, http.MethodGet, subPath, teacherToken, nil)
		require.Equal(t, http.StatusOK, recs.Code)
		subs := jsonList(t, recs)
		require.Len(t, subs, 1)
		assert.Nil(t, subs[0]["grade"])
	})

	t.Run("students cannot list submissions", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, subPath, studentToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("grade export", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/assignments/"+strconv.Itoa(a.ID)+"/grades.csv", teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
		assert.Contains(t, rec.Body.String(), "name,student_id,grade_level,classroom,grade,feedback")
	})
}
