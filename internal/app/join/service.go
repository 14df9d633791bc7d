package join

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableside/internal/adapter/logger"
	"tableside/internal/app/clientstate"
	"tableside/internal/domain"
	"tableside/internal/interfaces"
)

const defaultTableCapacity = 4

// Service runs the scan/verify flow that turns a scanned table token into an
// installed session and verified session user in the client state store.
type Service struct {
	tables        interfaces.TableRepository
	sessions      interfaces.SessionRepository
	verifications interfaces.VerificationRepository
	menu          interfaces.MenuRepository
	state         *clientstate.Store
	logger        logger.Logger
}

func NewService(
	tables interfaces.TableRepository,
	sessions interfaces.SessionRepository,
	verifications interfaces.VerificationRepository,
	menu interfaces.MenuRepository,
	state *clientstate.Store,
	lgr logger.Logger,
) *Service {
	return &Service{
		tables:        tables,
		sessions:      sessions,
		verifications: verifications,
		menu:          menu,
		state:         state,
		logger:        lgr,
	}
}

// ScanTokenForTable derives the token printed on a table's code from its
// number, zero-padded to three characters.
func ScanTokenForTable(tableNumber string) string {
	padded := tableNumber
	for len(padded) < 3 {
		padded = "0" + padded
	}
	return "table_qr_" + padded
}

// Scan resolves a scanned token to its table and the table's active session,
// creating the session when none is active. An unknown token is ErrNotFound.
func (s *Service) Scan(ctx context.Context, scanToken string) (*domain.Session, *domain.Table, error) {
	table, err := s.tables.FindByScanToken(ctx, scanToken)
	if err != nil {
		return nil, nil, err
	}
	return s.joinTable(ctx, table)
}

// JoinByTableNumber is the manual-entry path: it creates the table on first
// use with a derived token, then joins like a scan.
func (s *Service) JoinByTableNumber(ctx context.Context, tableNumber string) (*domain.Session, *domain.Table, error) {
	tableNumber = strings.TrimSpace(tableNumber)
	if tableNumber == "" {
		return nil, nil, errors.New("table number is required")
	}

	token := ScanTokenForTable(tableNumber)
	table, err := s.tables.FindByScanToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		table, err = s.tables.Create(ctx, tableNumber, token, defaultTableCapacity)
	}
	if err != nil {
		return nil, nil, err
	}
	return s.joinTable(ctx, table)
}

func (s *Service) joinTable(ctx context.Context, table *domain.Table) (*domain.Session, *domain.Table, error) {
	session, err := s.sessions.FindActiveByTable(ctx, table.ID)
	if errors.Is(err, domain.ErrNotFound) {
		session, err = s.sessions.Create(ctx, table.ID)
		if err == nil {
			s.logger.Info("session_created", "Started a new table session", session.ID, map[string]interface{}{
				"table_number": table.TableNumber,
			})
		}
	}
	if err != nil {
		return nil, nil, err
	}

	s.state.SetSession(session)
	s.state.SetTableNumber(table.TableNumber)

	return session, table, nil
}

// LoadMenu fetches the menu catalog into the client state snapshot.
func (s *Service) LoadMenu(ctx context.Context) error {
	categories, err := s.menu.ListActiveCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load menu categories: %w", err)
	}
	items, err := s.menu.ListAvailableItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load menu items: %w", err)
	}

	s.state.SetMenu(categories, items)
	return nil
}

// RequestCode issues a verification code for the phone number. Delivery is a
// stub: the code is fixed and logged, never sent.
func (s *Service) RequestCode(ctx context.Context, phoneNumber string) error {
	if !domain.ValidPhoneNumber(phoneNumber) {
		return domain.ErrInvalidPhone
	}

	expiresAt := time.Now().UTC().Add(domain.VerificationExpiry)
	if _, err := s.verifications.Create(ctx, phoneNumber, domain.VerificationCode, expiresAt); err != nil {
		return err
	}

	s.logger.Info("sms_stub", "Verification code issued (stub, not sent)", "", map[string]interface{}{
		"phone_number": phoneNumber,
		"code":         domain.VerificationCode,
	})
	return nil
}

// Verify checks the code, creates the session user on success, and installs
// the user in the client state. A session must already be joined.
func (s *Service) Verify(ctx context.Context, phoneNumber, code, userName string) (*domain.SessionUser, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, domain.ErrNameRequired
	}
	if !domain.ValidPhoneNumber(phoneNumber) {
		return nil, domain.ErrInvalidPhone
	}

	session := s.state.Session()
	if session == nil {
		return nil, domain.ErrNoSession
	}

	if _, err := s.verifications.Consume(ctx, phoneNumber, code); err != nil {
		return nil, err
	}

	user, err := s.sessions.CreateUser(ctx, session.ID, phoneNumber, userName)
	if err != nil {
		return nil, err
	}

	s.state.SetUser(user)
	s.logger.Info("user_joined", "Diner joined the session", session.ID, map[string]interface{}{
		"user_name": userName,
	})

	return user, nil
}
