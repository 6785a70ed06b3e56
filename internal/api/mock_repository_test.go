// MockRepository follows mockgen's layout for the Repository port in
// service.go. Rerun the go:generate directive there after changing the
// interface; it overwrites this file.

package api

import (
	context "context"
	reflect "reflect"
	time "time"

	models "github.com/fentz26/tempo/internal/models"
	store "github.com/fentz26/tempo/internal/store"
	gomock "github.com/golang/mock/gomock"
)

// MockRepository is a mock of Repository interface.
type MockRepository struct {
	ctrl     *gomock.Controller
	recorder *MockRepositoryMockRecorder
}

// MockRepositoryMockRecorder is the mock recorder for MockRepository.
type MockRepositoryMockRecorder struct {
	mock *MockRepository
}

// NewMockRepository creates a new mock instance.
func NewMockRepository(ctrl *gomock.Controller) *MockRepository {
	mock := &MockRepository{ctrl: ctrl}
	mock.recorder = &MockRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRepository) EXPECT() *MockRepositoryMockRecorder {
	return m.recorder
}

// ActiveTask mocks base method.
func (m *MockRepository) ActiveTask(arg0 context.Context, arg1 string) (*models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ActiveTask", arg0, arg1)
	ret0, _ := ret[0].(*models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ActiveTask indicates an expected call of ActiveTask.
func (mr *MockRepositoryMockRecorder) ActiveTask(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ActiveTask", reflect.TypeOf((*MockRepository)(nil).ActiveTask), arg0, arg1)
}

// AddProposalItem mocks base method.
func (m *MockRepository) AddProposalItem(arg0 context.Context, arg1 string, arg2 models.ProposalItem) (*models.Proposal, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddProposalItem", arg0, arg1, arg2)
	ret0, _ := ret[0].(*models.Proposal)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// AddProposalItem indicates an expected call of AddProposalItem.
func (mr *MockRepositoryMockRecorder) AddProposalItem(arg0, arg1, arg2 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddProposalItem", reflect.TypeOf((*MockRepository)(nil).AddProposalItem), arg0, arg1, arg2)
}

// ArchiveProject mocks base method.
func (m *MockRepository) ArchiveProject(arg0 context.Context, arg1 string, arg2 bool) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ArchiveProject", arg0, arg1, arg2)
	ret0, _ := ret[0].(error)
	return ret0
}

// ArchiveProject indicates an expected call of ArchiveProject.
func (mr *MockRepositoryMockRecorder) ArchiveProject(arg0, arg1, arg2 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ArchiveProject", reflect.TypeOf((*MockRepository)(nil).ArchiveProject), arg0, arg1, arg2)
}

// CompleteTask mocks base method.
func (m *MockRepository) CompleteTask(arg0 context.Context, arg1 string, arg2 models.TaskPatch, arg3 time.Time) (*store.StopOutcome, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CompleteTask", arg0, arg1, arg2, arg3)
	ret0, _ := ret[0].(*store.StopOutcome)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CompleteTask indicates an expected call of CompleteTask.
func (mr *MockRepositoryMockRecorder) CompleteTask(arg0, arg1, arg2, arg3 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CompleteTask", reflect.TypeOf((*MockRepository)(nil).CompleteTask), arg0, arg1, arg2, arg3)
}

// CreateClient mocks base method.
func (m *MockRepository) CreateClient(arg0 context.Context, arg1 string, arg2 string, arg3 string, arg4 string) (*models.Client, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateClient", arg0, arg1, arg2, arg3, arg4)
	ret0, _ := ret[0].(*models.Client)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CreateClient indicates an expected call of CreateClient.
func (mr *MockRepositoryMockRecorder) CreateClient(arg0, arg1, arg2, arg3, arg4 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateClient", reflect.TypeOf((*MockRepository)(nil).CreateClient), arg0, arg1, arg2, arg3, arg4)
}

// CreateProject mocks base method.
func (m *MockRepository) CreateProject(arg0 context.Context, arg1 store.NewProject) (*models.Project, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateProject", arg0, arg1)
	ret0, _ := ret[0].(*models.Project)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CreateProject indicates an expected call of CreateProject.
func (mr *MockRepositoryMockRecorder) CreateProject(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateProject", reflect.TypeOf((*MockRepository)(nil).CreateProject), arg0, arg1)
}

// CreateProposal mocks base method.
func (m *MockRepository) CreateProposal(arg0 context.Context, arg1 store.NewProposal) (*models.Proposal, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateProposal", arg0, arg1)
	ret0, _ := ret[0].(*models.Proposal)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CreateProposal indicates an expected call of CreateProposal.
func (mr *MockRepositoryMockRecorder) CreateProposal(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateProposal", reflect.TypeOf((*MockRepository)(nil).CreateProposal), arg0, arg1)
}

// CreateTask mocks base method.
func (m *MockRepository) CreateTask(arg0 context.Context, arg1 store.NewTask) (*models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateTask", arg0, arg1)
	ret0, _ := ret[0].(*models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CreateTask indicates an expected call of CreateTask.
func (mr *MockRepositoryMockRecorder) CreateTask(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateTask", reflect.TypeOf((*MockRepository)(nil).CreateTask), arg0, arg1)
}

// Dashboard mocks base method.
func (m *MockRepository) Dashboard(arg0 context.Context, arg1 time.Time) (*models.Dashboard, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Dashboard", arg0, arg1)
	ret0, _ := ret[0].(*models.Dashboard)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Dashboard indicates an expected call of Dashboard.
func (mr *MockRepositoryMockRecorder) Dashboard(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Dashboard", reflect.TypeOf((*MockRepository)(nil).Dashboard), arg0, arg1)
}

// DeleteClient mocks base method.
func (m *MockRepository) DeleteClient(arg0 context.Context, arg1 string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteClient", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteClient indicates an expected call of DeleteClient.
func (mr *MockRepositoryMockRecorder) DeleteClient(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteClient", reflect.TypeOf((*MockRepository)(nil).DeleteClient), arg0, arg1)
}

// DeleteProject mocks base method.
func (m *MockRepository) DeleteProject(arg0 context.Context, arg1 string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteProject", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteProject indicates an expected call of DeleteProject.
func (mr *MockRepositoryMockRecorder) DeleteProject(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteProject", reflect.TypeOf((*MockRepository)(nil).DeleteProject), arg0, arg1)
}

// DeleteProposal mocks base method.
func (m *MockRepository) DeleteProposal(arg0 context.Context, arg1 string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteProposal", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteProposal indicates an expected call of DeleteProposal.
func (mr *MockRepositoryMockRecorder) DeleteProposal(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteProposal", reflect.TypeOf((*MockRepository)(nil).DeleteProposal), arg0, arg1)
}

// DeleteTask mocks base method.
func (m *MockRepository) DeleteTask(arg0 context.Context, arg1 string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteTask", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteTask indicates an expected call of DeleteTask.
func (mr *MockRepositoryMockRecorder) DeleteTask(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteTask", reflect.TypeOf((*MockRepository)(nil).DeleteTask), arg0, arg1)
}

// GetClient mocks base method.
func (m *MockRepository) GetClient(arg0 context.Context, arg1 string) (*models.Client, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetClient", arg0, arg1)
	ret0, _ := ret[0].(*models.Client)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetClient indicates an expected call of GetClient.
func (mr *MockRepositoryMockRecorder) GetClient(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetClient", reflect.TypeOf((*MockRepository)(nil).GetClient), arg0, arg1)
}

// GetProject mocks base method.
func (m *MockRepository) GetProject(arg0 context.Context, arg1 string) (*models.Project, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetProject", arg0, arg1)
	ret0, _ := ret[0].(*models.Project)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetProject indicates an expected call of GetProject.
func (mr *MockRepositoryMockRecorder) GetProject(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetProject", reflect.TypeOf((*MockRepository)(nil).GetProject), arg0, arg1)
}

// GetProposal mocks base method.
func (m *MockRepository) GetProposal(arg0 context.Context, arg1 string) (*models.Proposal, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetProposal", arg0, arg1)
	ret0, _ := ret[0].(*models.Proposal)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetProposal indicates an expected call of GetProposal.
func (mr *MockRepositoryMockRecorder) GetProposal(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetProposal", reflect.TypeOf((*MockRepository)(nil).GetProposal), arg0, arg1)
}

// GetTask mocks base method.
func (m *MockRepository) GetTask(arg0 context.Context, arg1 string) (*models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetTask", arg0, arg1)
	ret0, _ := ret[0].(*models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetTask indicates an expected call of GetTask.
func (mr *MockRepositoryMockRecorder) GetTask(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetTask", reflect.TypeOf((*MockRepository)(nil).GetTask), arg0, arg1)
}

// ListClients mocks base method.
func (m *MockRepository) ListClients(arg0 context.Context) ([]models.Client, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListClients", arg0)
	ret0, _ := ret[0].([]models.Client)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListClients indicates an expected call of ListClients.
func (mr *MockRepositoryMockRecorder) ListClients(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListClients", reflect.TypeOf((*MockRepository)(nil).ListClients), arg0)
}

// ListProjects mocks base method.
func (m *MockRepository) ListProjects(arg0 context.Context, arg1 string, arg2 bool) ([]models.Project, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListProjects", arg0, arg1, arg2)
	ret0, _ := ret[0].([]models.Project)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListProjects indicates an expected call of ListProjects.
func (mr *MockRepositoryMockRecorder) ListProjects(arg0, arg1, arg2 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListProjects", reflect.TypeOf((*MockRepository)(nil).ListProjects), arg0, arg1, arg2)
}

// ListProposals mocks base method.
func (m *MockRepository) ListProposals(arg0 context.Context, arg1 string, arg2 models.ProposalStatus) ([]models.Proposal, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListProposals", arg0, arg1, arg2)
	ret0, _ := ret[0].([]models.Proposal)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListProposals indicates an expected call of ListProposals.
func (mr *MockRepositoryMockRecorder) ListProposals(arg0, arg1, arg2 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListProposals", reflect.TypeOf((*MockRepository)(nil).ListProposals), arg0, arg1, arg2)
}

// ListSessions mocks base method.
func (m *MockRepository) ListSessions(arg0 context.Context, arg1 models.SessionFilter) ([]models.TimeSession, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListSessions", arg0, arg1)
	ret0, _ := ret[0].([]models.TimeSession)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListSessions indicates an expected call of ListSessions.
func (mr *MockRepositoryMockRecorder) ListSessions(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListSessions", reflect.TypeOf((*MockRepository)(nil).ListSessions), arg0, arg1)
}

// ListTasks mocks base method.
func (m *MockRepository) ListTasks(arg0 context.Context, arg1 models.TaskFilter) ([]models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListTasks", arg0, arg1)
	ret0, _ := ret[0].([]models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListTasks indicates an expected call of ListTasks.
func (mr *MockRepositoryMockRecorder) ListTasks(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListTasks", reflect.TypeOf((*MockRepository)(nil).ListTasks), arg0, arg1)
}

// ListTasksByScope mocks base method.
func (m *MockRepository) ListTasksByScope(arg0 context.Context, arg1 string) ([]models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListTasksByScope", arg0, arg1)
	ret0, _ := ret[0].([]models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListTasksByScope indicates an expected call of ListTasksByScope.
func (mr *MockRepositoryMockRecorder) ListTasksByScope(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListTasksByScope", reflect.TypeOf((*MockRepository)(nil).ListTasksByScope), arg0, arg1)
}

// Ping mocks base method.
func (m *MockRepository) Ping(arg0 context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Ping", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// Ping indicates an expected call of Ping.
func (mr *MockRepositoryMockRecorder) Ping(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Ping", reflect.TypeOf((*MockRepository)(nil).Ping), arg0)
}

// RunningTasks mocks base method.
func (m *MockRepository) RunningTasks(arg0 context.Context) ([]models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RunningTasks", arg0)
	ret0, _ := ret[0].([]models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RunningTasks indicates an expected call of RunningTasks.
func (mr *MockRepositoryMockRecorder) RunningTasks(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RunningTasks", reflect.TypeOf((*MockRepository)(nil).RunningTasks), arg0)
}

// StartTimer mocks base method.
func (m *MockRepository) StartTimer(arg0 context.Context, arg1 string, arg2 store.Scope, arg3 time.Time) (*store.StartOutcome, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StartTimer", arg0, arg1, arg2, arg3)
	ret0, _ := ret[0].(*store.StartOutcome)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// StartTimer indicates an expected call of StartTimer.
func (mr *MockRepositoryMockRecorder) StartTimer(arg0, arg1, arg2, arg3 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StartTimer", reflect.TypeOf((*MockRepository)(nil).StartTimer), arg0, arg1, arg2, arg3)
}

// StopSession mocks base method.
func (m *MockRepository) StopSession(arg0 context.Context, arg1 string, arg2, arg3 time.Time, arg4 models.SessionSource) (*store.StopOutcome, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StopSession", arg0, arg1, arg2, arg3, arg4)
	ret0, _ := ret[0].(*store.StopOutcome)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// StopSession indicates an expected call of StopSession.
func (mr *MockRepositoryMockRecorder) StopSession(arg0, arg1, arg2, arg3, arg4 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StopSession", reflect.TypeOf((*MockRepository)(nil).StopSession), arg0, arg1, arg2, arg3, arg4)
}

// StopTimer mocks base method.
func (m *MockRepository) StopTimer(arg0 context.Context, arg1 string, arg2 time.Time, arg3 models.SessionSource) (*store.StopOutcome, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "StopTimer", arg0, arg1, arg2, arg3)
	ret0, _ := ret[0].(*store.StopOutcome)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// StopTimer indicates an expected call of StopTimer.
func (mr *MockRepositoryMockRecorder) StopTimer(arg0, arg1, arg2, arg3 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "StopTimer", reflect.TypeOf((*MockRepository)(nil).StopTimer), arg0, arg1, arg2, arg3)
}

// UpdateProposalStatus mocks base method.
func (m *MockRepository) UpdateProposalStatus(arg0 context.Context, arg1 string, arg2 models.ProposalStatus, arg3 models.ProposalStatus) (*models.Proposal, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateProposalStatus", arg0, arg1, arg2, arg3)
	ret0, _ := ret[0].(*models.Proposal)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// UpdateProposalStatus indicates an expected call of UpdateProposalStatus.
func (mr *MockRepositoryMockRecorder) UpdateProposalStatus(arg0, arg1, arg2, arg3 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateProposalStatus", reflect.TypeOf((*MockRepository)(nil).UpdateProposalStatus), arg0, arg1, arg2, arg3)
}

// UpdateTask mocks base method.
func (m *MockRepository) UpdateTask(arg0 context.Context, arg1 string, arg2 models.TaskPatch) (*models.Task, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateTask", arg0, arg1, arg2)
	ret0, _ := ret[0].(*models.Task)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// UpdateTask indicates an expected call of UpdateTask.
func (mr *MockRepositoryMockRecorder) UpdateTask(arg0, arg1, arg2 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateTask", reflect.TypeOf((*MockRepository)(nil).UpdateTask), arg0, arg1, arg2)
}
