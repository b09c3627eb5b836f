package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/deployhub/deployhub/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// User Operations
// =============================================================================

// userRow represents a user row in the database.
type userRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Name      string `db:"name"`
	Password  string `db:"password"`
	Role      string `db:"role"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	return createUser(ctx, s.db, user)
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, s.db, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUserByEmail(ctx, s.db, email)
}

// =============================================================================
// Project Operations
// =============================================================================

// projectRow represents a project row in the database.
type projectRow struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	Name           string `db:"name"`
	RepositoryURL  string `db:"repository_url"`
	Branch         string `db:"branch"`
	Framework      string `db:"framework"`
	BuildCommand   string `db:"build_command"`
	InstallCommand string `db:"install_command"`
	OutputDir      string `db:"output_dir"`
	Port           int    `db:"port"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (s *SQLiteStore) CreateProject(ctx context.Context, project *domain.Project) error {
	return createProject(ctx, s.db, project)
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return getProject(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, project *domain.Project) error {
	return updateProject(ctx, s.db, project)
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	return deleteProject(ctx, s.db, id)
}

func (s *SQLiteStore) ListProjectsByUser(ctx context.Context, userID string, opts ListOptions) ([]domain.Project, error) {
	return listProjectsByUser(ctx, s.db, userID, opts)
}

// =============================================================================
// Environment Variable Operations
// =============================================================================

// envVariableRow represents an environment variable row in the database.
type envVariableRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	Key       string `db:"key"`
	Value     string `db:"value"`
	IsSecret  bool   `db:"is_secret"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *SQLiteStore) UpsertEnvVariable(ctx context.Context, v *domain.EnvVariable) error {
	return upsertEnvVariable(ctx, s.db, v)
}

func (s *SQLiteStore) ListEnvVariables(ctx context.Context, projectID string) ([]domain.EnvVariable, error) {
	return listEnvVariables(ctx, s.db, projectID)
}

func (s *SQLiteStore) DeleteEnvVariable(ctx context.Context, projectID, key string) error {
	return deleteEnvVariable(ctx, s.db, projectID, key)
}

// =============================================================================
// Deployment Operations
// =============================================================================

// deploymentRow represents a deployment row in the database.
type deploymentRow struct {
	ID          string `db:"id"`
	ProjectID   string `db:"project_id"`
	Status      string `db:"status"`
	BuildLogs   string `db:"build_logs"`
	DeployURL   string `db:"deploy_url"`
	CommitHash  string `db:"commit_hash"`
	ErrorKind   string `db:"error_kind"`
	ErrorDetail string `db:"error_detail"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (s *SQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) ListDeploymentsByProject(ctx context.Context, projectID string, opts ListOptions) ([]domain.Deployment, error) {
	return listDeploymentsByProject(ctx, s.db, projectID, opts)
}

func (s *SQLiteStore) ListDeploymentsByStatus(ctx context.Context, status domain.DeploymentStatus, opts ListOptions) ([]domain.Deployment, error) {
	return listDeploymentsByStatus(ctx, s.db, status, opts)
}

func (s *SQLiteStore) ActiveDeploymentExists(ctx context.Context, projectID string) (bool, error) {
	return activeDeploymentExists(ctx, s.db, projectID)
}

// =============================================================================
// Settings Operations
// =============================================================================

// settingRow represents an admin setting row in the database.
type settingRow struct {
	Key         string `db:"key"`
	Value       string `db:"value"`
	Description string `db:"description"`
	UpdatedAt   string `db:"updated_at"`
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	return getSetting(ctx, s.db, key)
}

func (s *SQLiteStore) SetSetting(ctx context.Context, setting *domain.Setting) error {
	return setSetting(ctx, s.db, setting)
}

func (s *SQLiteStore) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	return listSettings(ctx, s.db)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	return createUser(ctx, s.tx, user)
}

func (s *txSQLiteStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUserByEmail(ctx, s.tx, email)
}

func (s *txSQLiteStore) CreateProject(ctx context.Context, project *domain.Project) error {
	return createProject(ctx, s.tx, project)
}

func (s *txSQLiteStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return getProject(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateProject(ctx context.Context, project *domain.Project) error {
	return updateProject(ctx, s.tx, project)
}

func (s *txSQLiteStore) DeleteProject(ctx context.Context, id string) error {
	return deleteProject(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListProjectsByUser(ctx context.Context, userID string, opts ListOptions) ([]domain.Project, error) {
	return listProjectsByUser(ctx, s.tx, userID, opts)
}

func (s *txSQLiteStore) UpsertEnvVariable(ctx context.Context, v *domain.EnvVariable) error {
	return upsertEnvVariable(ctx, s.tx, v)
}

func (s *txSQLiteStore) ListEnvVariables(ctx context.Context, projectID string) ([]domain.EnvVariable, error) {
	return listEnvVariables(ctx, s.tx, projectID)
}

func (s *txSQLiteStore) DeleteEnvVariable(ctx context.Context, projectID, key string) error {
	return deleteEnvVariable(ctx, s.tx, projectID, key)
}

func (s *txSQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) ListDeploymentsByProject(ctx context.Context, projectID string, opts ListOptions) ([]domain.Deployment, error) {
	return listDeploymentsByProject(ctx, s.tx, projectID, opts)
}

func (s *txSQLiteStore) ListDeploymentsByStatus(ctx context.Context, status domain.DeploymentStatus, opts ListOptions) ([]domain.Deployment, error) {
	return listDeploymentsByStatus(ctx, s.tx, status, opts)
}

func (s *txSQLiteStore) ActiveDeploymentExists(ctx context.Context, projectID string) (bool, error) {
	return activeDeploymentExists(ctx, s.tx, projectID)
}

func (s *txSQLiteStore) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	return getSetting(ctx, s.tx, key)
}

func (s *txSQLiteStore) SetSetting(ctx context.Context, setting *domain.Setting) error {
	return setSetting(ctx, s.tx, setting)
}

func (s *txSQLiteStore) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	return listSettings(ctx, s.tx)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func createUser(ctx context.Context, exec executor, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password, role, created_at, updated_at)
		VALUES (:id, :email, :name, :password, :role, :created_at, :updated_at)`

	row := map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"password":   user.Password,
		"role":       string(user.Role),
		"created_at": user.CreatedAt.Format(time.RFC3339),
		"updated_at": user.UpdatedAt.Format(time.RFC3339),
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.id") {
			return NewStoreError("CreateUser", "user", user.ID, "user with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return NewStoreError("CreateUser", "user", user.ID, "user with this email already exists", ErrDuplicateEmail)
		}
		return NewStoreError("CreateUser", "user", user.ID, err.Error(), err)
	}

	return nil
}

func getUser(ctx context.Context, exec executor, id string) (*domain.User, error) {
	query := `SELECT * FROM users WHERE id = ?`

	var row userRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetUser", "user", id, "user not found", ErrNotFound)
		}
		return nil, NewStoreError("GetUser", "user", id, err.Error(), err)
	}

	return rowToUser(&row), nil
}

func getUserByEmail(ctx context.Context, exec executor, email string) (*domain.User, error) {
	query := `SELECT * FROM users WHERE email = ?`

	var row userRow
	err := exec.GetContext(ctx, &row, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetUserByEmail", "user", email, "user not found", ErrNotFound)
		}
		return nil, NewStoreError("GetUserByEmail", "user", email, err.Error(), err)
	}

	return rowToUser(&row), nil
}

func createProject(ctx context.Context, exec executor, project *domain.Project) error {
	query := `
		INSERT INTO projects (
			id, user_id, name, repository_url, branch, framework,
			build_command, install_command, output_dir, port,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :name, :repository_url, :branch, :framework,
			:build_command, :install_command, :output_dir, :port,
			:created_at, :updated_at
		)`

	_, err := exec.NamedExecContext(ctx, query, projectToRow(project))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: projects.id") {
			return NewStoreError("CreateProject", "project", project.ID, "project with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreateProject", "project", project.ID, "owner not found", ErrForeignKey)
		}
		return NewStoreError("CreateProject", "project", project.ID, err.Error(), err)
	}

	return nil
}

func getProject(ctx context.Context, exec executor, id string) (*domain.Project, error) {
	query := `SELECT * FROM projects WHERE id = ?`

	var row projectRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetProject", "project", id, "project not found", ErrNotFound)
		}
		return nil, NewStoreError("GetProject", "project", id, err.Error(), err)
	}

	return rowToProject(&row), nil
}

func updateProject(ctx context.Context, exec executor, project *domain.Project) error {
	query := `
		UPDATE projects SET
			name = :name,
			repository_url = :repository_url,
			branch = :branch,
			framework = :framework,
			build_command = :build_command,
			install_command = :install_command,
			output_dir = :output_dir,
			port = :port,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, projectToRow(project))
	if err != nil {
		return NewStoreError("UpdateProject", "project", project.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateProject", "project", project.ID, "project not found", ErrNotFound)
	}

	return nil
}

func deleteProject(ctx context.Context, exec executor, id string) error {
	query := `DELETE FROM projects WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return NewStoreError("DeleteProject", "project", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteProject", "project", id, "project not found", ErrNotFound)
	}

	return nil
}

func listProjectsByUser(ctx context.Context, exec executor, userID string, opts ListOptions) ([]domain.Project, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM projects WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []projectRow
	err := exec.SelectContext(ctx, &rows, query, userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListProjectsByUser", "project", "", err.Error(), err)
	}

	projects := make([]domain.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, *rowToProject(&row))
	}

	return projects, nil
}

func upsertEnvVariable(ctx context.Context, exec executor, v *domain.EnvVariable) error {
	query := `
		INSERT INTO env_variables (id, project_id, key, value, is_secret, created_at, updated_at)
		VALUES (:id, :project_id, :key, :value, :is_secret, :created_at, :updated_at)
		ON CONFLICT (project_id, key) DO UPDATE SET
			value = excluded.value,
			is_secret = excluded.is_secret,
			updated_at = excluded.updated_at`

	row := map[string]any{
		"id":         v.ID,
		"project_id": v.ProjectID,
		"key":        v.Key,
		"value":      v.Value,
		"is_secret":  v.IsSecret,
		"created_at": v.CreatedAt.Format(time.RFC3339),
		"updated_at": v.UpdatedAt.Format(time.RFC3339),
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("UpsertEnvVariable", "env_variable", v.Key, "project not found", ErrForeignKey)
		}
		return NewStoreError("UpsertEnvVariable", "env_variable", v.Key, err.Error(), err)
	}

	return nil
}

func listEnvVariables(ctx context.Context, exec executor, projectID string) ([]domain.EnvVariable, error) {
	query := `SELECT * FROM env_variables WHERE project_id = ? ORDER BY key ASC`

	var rows []envVariableRow
	err := exec.SelectContext(ctx, &rows, query, projectID)
	if err != nil {
		return nil, NewStoreError("ListEnvVariables", "env_variable", projectID, err.Error(), err)
	}

	vars := make([]domain.EnvVariable, 0, len(rows))
	for _, row := range rows {
		vars = append(vars, *rowToEnvVariable(&row))
	}

	return vars, nil
}

func deleteEnvVariable(ctx context.Context, exec executor, projectID, key string) error {
	query := `DELETE FROM env_variables WHERE project_id = ? AND key = ?`

	result, err := exec.ExecContext(ctx, query, projectID, key)
	if err != nil {
		return NewStoreError("DeleteEnvVariable", "env_variable", key, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteEnvVariable", "env_variable", key, "env variable not found", ErrNotFound)
	}

	return nil
}

func createDeployment(ctx context.Context, exec executor, deployment *domain.Deployment) error {
	query := `
		INSERT INTO deployments (
			id, project_id, status, build_logs, deploy_url, commit_hash,
			error_kind, error_detail, created_at, updated_at
		) VALUES (
			:id, :project_id, :status, :build_logs, :deploy_url, :commit_hash,
			:error_kind, :error_detail, :created_at, :updated_at
		)`

	_, err := exec.NamedExecContext(ctx, query, deploymentToRow(deployment))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("CreateDeployment", "deployment", deployment.ID, "deployment with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreateDeployment", "deployment", deployment.ID, "project not found", ErrForeignKey)
		}
		return NewStoreError("CreateDeployment", "deployment", deployment.ID, err.Error(), err)
	}

	return nil
}

func getDeployment(ctx context.Context, exec executor, id string) (*domain.Deployment, error) {
	query := `SELECT * FROM deployments WHERE id = ?`

	var row deploymentRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", "deployment", id, "deployment not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", "deployment", id, err.Error(), err)
	}

	return rowToDeployment(&row), nil
}

func updateDeployment(ctx context.Context, exec executor, deployment *domain.Deployment) error {
	query := `
		UPDATE deployments SET
			status = :status,
			build_logs = :build_logs,
			deploy_url = :deploy_url,
			commit_hash = :commit_hash,
			error_kind = :error_kind,
			error_detail = :error_detail,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, deploymentToRow(deployment))
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateDeployment", "deployment", deployment.ID, "deployment not found", ErrNotFound)
	}

	return nil
}

func listDeploymentsByProject(ctx context.Context, exec executor, projectID string, opts ListOptions) ([]domain.Deployment, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM deployments WHERE project_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []deploymentRow
	err := exec.SelectContext(ctx, &rows, query, projectID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListDeploymentsByProject", "deployment", "", err.Error(), err)
	}

	deployments := make([]domain.Deployment, 0, len(rows))
	for _, row := range rows {
		deployments = append(deployments, *rowToDeployment(&row))
	}

	return deployments, nil
}

func listDeploymentsByStatus(ctx context.Context, exec executor, status domain.DeploymentStatus, opts ListOptions) ([]domain.Deployment, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM deployments WHERE status = ? ORDER BY created_at ASC LIMIT ? OFFSET ?`

	var rows []deploymentRow
	err := exec.SelectContext(ctx, &rows, query, string(status), opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListDeploymentsByStatus", "deployment", "", err.Error(), err)
	}

	deployments := make([]domain.Deployment, 0, len(rows))
	for _, row := range rows {
		deployments = append(deployments, *rowToDeployment(&row))
	}

	return deployments, nil
}

func activeDeploymentExists(ctx context.Context, exec executor, projectID string) (bool, error) {
	query := `SELECT COUNT(*) FROM deployments WHERE project_id = ? AND status IN ('pending', 'building')`

	var count int
	err := exec.GetContext(ctx, &count, query, projectID)
	if err != nil {
		return false, NewStoreError("ActiveDeploymentExists", "deployment", projectID, err.Error(), err)
	}

	return count > 0, nil
}

func getSetting(ctx context.Context, exec executor, key string) (*domain.Setting, error) {
	query := `SELECT * FROM admin_settings WHERE key = ?`

	var row settingRow
	err := exec.GetContext(ctx, &row, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetSetting", "setting", key, "setting not found", ErrNotFound)
		}
		return nil, NewStoreError("GetSetting", "setting", key, err.Error(), err)
	}

	return rowToSetting(&row), nil
}

func setSetting(ctx context.Context, exec executor, setting *domain.Setting) error {
	query := `
		INSERT INTO admin_settings (key, value, description, updated_at)
		VALUES (:key, :value, :description, :updated_at)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at`

	row := map[string]any{
		"key":         setting.Key,
		"value":       setting.Value,
		"description": setting.Description,
		"updated_at":  setting.UpdatedAt.Format(time.RFC3339),
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("SetSetting", "setting", setting.Key, err.Error(), err)
	}

	return nil
}

func listSettings(ctx context.Context, exec executor) ([]domain.Setting, error) {
	query := `SELECT * FROM admin_settings ORDER BY key ASC`

	var rows []settingRow
	err := exec.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, NewStoreError("ListSettings", "setting", "", err.Error(), err)
	}

	settings := make([]domain.Setting, 0, len(rows))
	for _, row := range rows {
		settings = append(settings, *rowToSetting(&row))
	}

	return settings, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func rowToUser(row *userRow) *domain.User {
	return &domain.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Password:  row.Password,
		Role:      domain.Role(row.Role),
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
}

func projectToRow(project *domain.Project) map[string]any {
	return map[string]any{
		"id":              project.ID,
		"user_id":         project.UserID,
		"name":            project.Name,
		"repository_url":  project.RepositoryURL,
		"branch":          project.Branch,
		"framework":       project.Framework,
		"build_command":   project.BuildCommand,
		"install_command": project.InstallCommand,
		"output_dir":      project.OutputDir,
		"port":            project.Port,
		"created_at":      project.CreatedAt.Format(time.RFC3339),
		"updated_at":      project.UpdatedAt.Format(time.RFC3339),
	}
}

func rowToProject(row *projectRow) *domain.Project {
	return &domain.Project{
		ID:             row.ID,
		UserID:         row.UserID,
		Name:           row.Name,
		RepositoryURL:  row.RepositoryURL,
		Branch:         row.Branch,
		Framework:      row.Framework,
		BuildCommand:   row.BuildCommand,
		InstallCommand: row.InstallCommand,
		OutputDir:      row.OutputDir,
		Port:           row.Port,
		CreatedAt:      parseTime(row.CreatedAt),
		UpdatedAt:      parseTime(row.UpdatedAt),
	}
}

func rowToEnvVariable(row *envVariableRow) *domain.EnvVariable {
	return &domain.EnvVariable{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Key:       row.Key,
		Value:     row.Value,
		IsSecret:  row.IsSecret,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
}

func deploymentToRow(deployment *domain.Deployment) map[string]any {
	return map[string]any{
		"id":           deployment.ID,
		"project_id":   deployment.ProjectID,
		"status":       string(deployment.Status),
		"build_logs":   deployment.BuildLogs,
		"deploy_url":   deployment.DeployURL,
		"commit_hash":  deployment.CommitHash,
		"error_kind":   deployment.ErrorKind,
		"error_detail": deployment.ErrorDetail,
		"created_at":   deployment.CreatedAt.Format(time.RFC3339),
		"updated_at":   deployment.UpdatedAt.Format(time.RFC3339),
	}
}

func rowToDeployment(row *deploymentRow) *domain.Deployment {
	return &domain.Deployment{
		ID:          row.ID,
		ProjectID:   row.ProjectID,
		Status:      domain.DeploymentStatus(row.Status),
		BuildLogs:   row.BuildLogs,
		DeployURL:   row.DeployURL,
		CommitHash:  row.CommitHash,
		ErrorKind:   row.ErrorKind,
		ErrorDetail: row.ErrorDetail,
		CreatedAt:   parseTime(row.CreatedAt),
		UpdatedAt:   parseTime(row.UpdatedAt),
	}
}

func rowToSetting(row *settingRow) *domain.Setting {
	return &domain.Setting{
		Key:         row.Key,
		Value:       row.Value,
		Description: row.Description,
		UpdatedAt:   parseTime(row.UpdatedAt),
	}
}
