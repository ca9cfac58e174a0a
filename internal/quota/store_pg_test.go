package quota

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPGAdmitChargesFreeUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT plan, used, cap FROM user_quota`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "used", "cap"}).AddRow(PlanFree, 1, 3))
	mock.ExpectExec(`UPDATE user_quota SET used`).
		WithArgs(2, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewPostgresService(NewPGStore(db, 3))
	q, err := svc.Admit(context.Background(), "u1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if q.Used != 2 {
		t.Fatalf("expected used 2, got %d", q.Used)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGAdmitDeniesAtCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT plan, used, cap FROM user_quota`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "used", "cap"}).AddRow(PlanFree, 3, 3))
	mock.ExpectRollback()

	svc := NewPostgresService(NewPGStore(db, 3))
	_, err = svc.Admit(context.Background(), "u1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGAdmitProSkipsCharge(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT plan, used, cap FROM user_quota`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "used", "cap"}).AddRow(PlanPro, 5, 3))
	mock.ExpectCommit()

	svc := NewPostgresService(NewPGStore(db, 3))
	q, err := svc.Admit(context.Background(), "u1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if q.Used != 5 {
		t.Fatalf("pro admission must not charge, used=%d", q.Used)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGAdmitCreatesDefaultRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT plan, used, cap FROM user_quota`).
		WithArgs("fresh").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "used", "cap"}))
	mock.ExpectExec(`INSERT INTO user_quota`).
		WithArgs("fresh", PlanFree, 0, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_quota SET used`).
		WithArgs(1, "fresh").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewPostgresService(NewPGStore(db, 3))
	q, err := svc.Admit(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if q.Used != 1 || q.Cap != 3 || q.Plan != PlanFree {
		t.Fatalf("unexpected quota: %+v", q)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
