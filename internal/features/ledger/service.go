// Package ledger — service.go содержит правила учёта.
// Тип записи, сумма, запрет отрицательного долга и семантика оплаты
// решаются здесь; репозиторий только выполняет запросы.
package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/common"
	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/metrics"
)

// MaxDeltaUnits — предел |delta| за один запрос. Сам долг ограничен
// common.MaxBalanceUnits, цена — common.MaxUnitPrice: вместе они
// не дают |units| * цена переполнить int64.
const MaxDeltaUnits = 1_000_000

// notifyTimeout ограничивает отправку уведомления после оплаты.
const notifyTimeout = 10 * time.Second

// Notifier отправляет текстовые уведомления (Telegram или лог).
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Service управляет долгами и журналом транзакций.
type Service struct {
	store     Store            // Хранилище людей и журнала
	unitPrice common.Money     // Цена одной бутылки
	currency  string           // Обозначение валюты для уведомлений
	notifier  Notifier         // Может быть nil
	metrics   *metrics.Metrics // Может быть nil
}

// NewService создаёт сервис учёта.
func NewService(store Store, cfg *config.Config, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		unitPrice: cfg.LedgerUnitPrice,
		currency:  cfg.LedgerCurrency,
		notifier:  notifier,
		metrics:   m,
	}
}

// UnitPrice возвращает текущую цену бутылки.
func (s *Service) UnitPrice() common.Money {
	return s.unitPrice
}

// UpsertPurchase меняет долг человека на delta бутылок.
//
// Если человека с таким именем нет, он создаётся. delta > 0 — покупка,
// delta < 0 — возврат, delta == 0 только создаёт человека / меняет напиток.
// Возврат больше текущего долга отклоняется целиком.
// Возвращает обновлённый список всех людей.
func (s *Service) UpsertPurchase(ctx context.Context, name string, delta int64, beverageType *string) ([]*Person, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if delta > MaxDeltaUnits || delta < -MaxDeltaUnits {
		return nil, common.NewValidationError("delta_units", fmt.Sprintf("не больше %d бутылок за раз", MaxDeltaUnits))
	}
	beverageType, err = normalizeBeverageType(beverageType)
	if err != nil {
		return nil, err
	}

	var recorded *Transaction
	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		if err := tx.EnsurePerson(ctx, name, beverageType); err != nil {
			return err
		}

		person, err := tx.LockPersonByName(ctx, name)
		if err != nil {
			return err
		}
		if person == nil {
			return &common.StoreError{Op: "блокировка человека", Err: fmt.Errorf("человек %q пропал после вставки", name), Retryable: true}
		}

		// Откат транзакции убирает и только что вставленного человека
		if person.OutstandingUnits+delta < 0 {
			return &common.ValidationError{
				Field:   "delta_units",
				Message: fmt.Sprintf("нельзя вернуть %d: долг %d", -delta, person.OutstandingUnits),
				Err:     common.ErrNegativeBalance,
			}
		}

		if person.OutstandingUnits+delta > common.MaxBalanceUnits {
			return common.NewValidationError("delta_units",
				fmt.Sprintf("долг не может превышать %d бутылок", common.MaxBalanceUnits))
		}

		updated, err := tx.ApplyDelta(ctx, person.ID, delta, beverageType)
		if err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}

		recorded, err = tx.InsertTransaction(ctx, &Transaction{
			PersonID:      &updated.ID,
			BeverageUnits: delta,
			Amount:        s.unitPrice.ForUnits(delta),
			Kind:          kindForDelta(delta),
			BeverageType:  updated.BeverageType,
		})
		return err
	})
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	if recorded != nil {
		s.metrics.RecordTransaction(string(recorded.Kind), recorded.BeverageUnits, int64(recorded.Amount))
		log.WithFields(log.Fields{
			"name":  name,
			"delta": delta,
			"kind":  recorded.Kind,
		}).Info("Долг изменён")
	}

	return s.store.ListPeople(ctx)
}

// SettlePayment гасит весь долг человека одной записью payment.
// Для нулевого долга ничего не пишется, поэтому повторный вызов безопасен.
// Возвращает человека после оплаты или nil, если такого id нет.
func (s *Service) SettlePayment(ctx context.Context, personID int64) (*Person, error) {
	if personID <= 0 {
		return nil, common.NewValidationError("id", "id должен быть положительным числом")
	}

	var (
		payment *Transaction
		person  *Person
	)
	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		p, err := tx.LockPersonByID(ctx, personID)
		if err != nil {
			return err
		}
		person = p
		if p == nil || p.OutstandingUnits <= 0 {
			return nil
		}

		payment, err = tx.InsertTransaction(ctx, &Transaction{
			PersonID:      &p.ID,
			BeverageUnits: p.OutstandingUnits,
			Amount:        s.unitPrice.ForUnits(p.OutstandingUnits),
			Kind:          KindPayment,
		})
		if err != nil {
			return err
		}

		person, err = tx.ZeroBalance(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		log.WithField("person_id", personID).Debug("Оплата: долга нет, ничего не делаем")
		return person, nil
	}

	s.metrics.RecordTransaction(string(KindPayment), payment.BeverageUnits, int64(payment.Amount))
	log.WithFields(log.Fields{
		"person_id": personID,
		"units":     payment.BeverageUnits,
		"amount":    payment.Amount.String(),
	}).Info("Долг погашен")

	s.notifySettlement(ctx, person.Name, payment)
	return person, nil
}

// QuickBuy записывает анонимную покупку одной бутылки.
// Долги людей не меняются.
func (s *Service) QuickBuy(ctx context.Context, beverageType *string) (*Transaction, error) {
	beverageType, err := normalizeBeverageType(beverageType)
	if err != nil {
		return nil, err
	}

	t, err := s.store.InsertTransaction(ctx, &Transaction{
		BeverageUnits: 1,
		Amount:        s.unitPrice.ForUnits(1),
		Kind:          KindQuickBuy,
		BeverageType:  beverageType,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransaction(string(KindQuickBuy), 1, int64(t.Amount))
	log.WithField("beverage_type", derefOr(beverageType, "-")).Info("Быстрая покупка")
	return t, nil
}

// RelabelTransaction меняет напиток у существующей записи журнала.
// nil или пустая строка очищают напиток.
func (s *Service) RelabelTransaction(ctx context.Context, id int64, beverageType *string) (*Transaction, error) {
	if id <= 0 {
		return nil, common.NewValidationError("id", "id должен быть положительным числом")
	}
	beverageType, err := normalizeBeverageType(beverageType)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateTransactionBeverageType(ctx, id, beverageType)
}

// RemovePerson удаляет человека без долга. Записи журнала остаются.
func (s *Service) RemovePerson(ctx context.Context, id int64) error {
	if id <= 0 {
		return common.NewValidationError("id", "id должен быть положительным числом")
	}

	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		p, err := tx.LockPersonByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return &common.NotFoundError{Entity: "person", ID: id}
		}
		if p.OutstandingUnits > 0 {
			return &common.ValidationError{
				Field:   "id",
				Message: fmt.Sprintf("сначала нужно погасить долг (%d)", p.OutstandingUnits),
				Err:     common.ErrOutstandingBalance,
			}
		}
		return tx.DeletePerson(ctx, id)
	})
	if err != nil {
		s.recordRejection(err)
		return err
	}

	log.WithField("person_id", id).Info("Человек удалён из списка")
	return nil
}

// ListPeople возвращает всех людей по имени.
func (s *Service) ListPeople(ctx context.Context) ([]*Person, error) {
	return s.store.ListPeople(ctx)
}

// ListTransactions возвращает журнал, новые записи первыми.
func (s *Service) ListTransactions(ctx context.Context) ([]*Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// Debtors возвращает людей с ненулевым долгом, самые крупные долги первыми.
func (s *Service) Debtors(ctx context.Context) ([]*Person, error) {
	people, err := s.store.ListPeople(ctx)
	if err != nil {
		return nil, err
	}

	debtors := make([]*Person, 0, len(people))
	for _, p := range people {
		if p.OutstandingUnits > 0 {
			debtors = append(debtors, p)
		}
	}
	// Список уже отсортирован по имени, стабильная сортировка это сохраняет
	slices.SortStableFunc(debtors, func(a, b *Person) int {
		return cmp.Compare(b.OutstandingUnits, a.OutstandingUnits)
	})
	return debtors, nil
}

// DebtorsReport формирует текст напоминания для чата.
// Пустая строка — должников нет.
func (s *Service) DebtorsReport(ctx context.Context) (string, error) {
	debtors, err := s.Debtors(ctx)
	if err != nil {
		return "", err
	}
	if len(debtors) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("🍺 Напоминание о долгах:\n\n")
	var total int64
	for _, p := range debtors {
		total += p.OutstandingUnits
		fmt.Fprintf(&b, "• %s: %d %s (%s)\n",
			p.Name, p.OutstandingUnits, common.PluralizeBottles(p.OutstandingUnits),
			common.FormatMoney(s.unitPrice.ForUnits(p.OutstandingUnits), s.currency))
	}
	fmt.Fprintf(&b, "\nВсего: %d %s на %s",
		total, common.PluralizeBottles(total), common.FormatMoney(s.unitPrice.ForUnits(total), s.currency))
	return b.String(), nil
}

func (s *Service) notifySettlement(ctx context.Context, name string, payment *Transaction) {
	if s.notifier == nil {
		return
	}

	text := fmt.Sprintf("💸 %s погасил(а) долг: %d %s, %s",
		name, payment.BeverageUnits, common.PluralizeBottles(payment.BeverageUnits),
		common.FormatMoney(payment.Amount, s.currency))

	// Ответ клиенту не ждёт Telegram; отмена запроса не обрывает отправку
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.Send(notifyCtx, text); err != nil {
			log.WithError(err).WithField("person", name).Warn("Не удалось отправить уведомление об оплате")
		}
	}()
}

func (s *Service) recordRejection(err error) {
	switch {
	case errors.Is(err, common.ErrNegativeBalance):
		s.metrics.RecordRejection("negative_balance")
	case errors.Is(err, common.ErrOutstandingBalance):
		s.metrics.RecordRejection("outstanding_balance")
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.NewValidationError("name", "имя не может быть пустым")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", common.NewValidationError("name", fmt.Sprintf("имя длиннее %d символов", MaxNameLength))
	}
	return name, nil
}

func normalizeBeverageType(beverageType *string) (*string, error) {
	if beverageType == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*beverageType)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxBeverageTypeLength {
		return nil, common.NewValidationError("beverage_type", fmt.Sprintf("название напитка длиннее %d символов", MaxBeverageTypeLength))
	}
	return &trimmed, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
