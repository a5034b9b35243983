package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/admission/domain"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/events"
	"github.com/smallbiznis/clinicledger/internal/observability/metrics"
	"github.com/smallbiznis/clinicledger/internal/observability/tracing"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	patientdomain "github.com/smallbiznis/clinicledger/internal/patient/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("clinicledger/admission")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Patients patientdomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
	Events   events.Publisher `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	patients patientdomain.Service
	metrics  *metrics.Metrics
	events   events.Publisher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("admission.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		patients: p.Patients,
		metrics:  p.Metrics,
		events:   p.Events,
	}
}

func (s *Service) Admit(ctx context.Context, appointmentID snowflake.ID) (result domain.AdmissionResult, err error) {
	ctx, span := tracer.Start(ctx, "admission.Admit")
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()

	clinicID, operatorID, ok := opcontext.Scope(ctx)
	if !ok {
		return domain.AdmissionResult{}, opcontext.ErrMissingScope
	}
	if appointmentID == 0 {
		return domain.AdmissionResult{}, domain.ErrAppointmentNotFound
	}
	span.SetAttributes(attribute.String("appointment_id", appointmentID.String()))

	log := s.log.With(
		zap.String("clinic_id", clinicID.String()),
		zap.String("operator_id", operatorID.String()),
		zap.String("appointment_id", appointmentID.String()),
	)

	appointment, err := s.repo.FindAppointment(ctx, s.db, clinicID, appointmentID)
	if err != nil {
		return domain.AdmissionResult{}, apperr.Persistence("load appointment", err)
	}
	if appointment == nil {
		return domain.AdmissionResult{}, domain.ErrAppointmentNotFound
	}

	var prior domain.AppointmentStatus
	switch {
	case appointment.Status.Admittable():
		prior = appointment.Status
		rows, err := s.repo.TransitionAppointment(ctx, s.db, clinicID, appointmentID, prior, domain.AppointmentArrived, s.clock.Now().UTC())
		if err != nil {
			return domain.AdmissionResult{}, apperr.Persistence("mark appointment arrived", err)
		}
		if rows == 0 {
			return domain.AdmissionResult{}, domain.ErrInvalidStatusTransition
		}
	case appointment.Status == domain.AppointmentArrived:
		item, err := s.repo.FindQueueItem(ctx, s.db, clinicID, appointmentID)
		if err != nil {
			return domain.AdmissionResult{}, apperr.Persistence("load queue item", err)
		}
		if item != nil {
			return domain.AdmissionResult{Appointment: *appointment, QueueItem: *item, AlreadyAdmitted: true}, nil
		}
		// ARRIVED but never queued: gate it again and fall back to CONFIRMED if denied
		prior = domain.AppointmentConfirmed
	default:
		log.Info("admission refused for appointment status", zap.String("status", string(appointment.Status)))
		return domain.AdmissionResult{}, domain.ErrInvalidStatusTransition
	}
	appointment.Status = domain.AppointmentArrived

	result, err = s.gate(ctx, *appointment)
	if err != nil {
		s.restore(ctx, log, *appointment, prior)

		if blocked, ok := domain.AsPolicyBlock(err); ok {
			blocked.RestoredStatus = prior
			s.metrics.RecordAdmission(ctx, metrics.OutcomeBlocked)
			s.publish(ctx, events.New(events.TypeAdmissionBlocked, clinicID.String(), s.clock.Now(), map[string]any{
				"appointment_id": appointmentID.String(),
				"patient_id":     appointment.PatientID.String(),
				"balance_due":    blocked.BalanceDue.StringFixed(2),
				"bad_debtor":     blocked.BadDebtor,
			}))
			log.Info("admission blocked by debt policy",
				zap.String("balance_due", blocked.BalanceDue.StringFixed(2)),
				zap.Bool("bad_debtor", blocked.BadDebtor),
				zap.String("restored_status", string(prior)),
			)
			return domain.AdmissionResult{}, blocked
		}

		s.metrics.RecordAdmission(ctx, metrics.OutcomeFailed)
		log.Error("admission failed", zap.Error(err))
		return domain.AdmissionResult{}, err
	}

	if result.AlreadyAdmitted {
		// the concurrent admission that queued it reports the arrival
		log.Info("patient already queued", zap.String("queue_item_id", result.QueueItem.ID.String()))
		return result, nil
	}

	outcome := metrics.OutcomeAdmitted
	if result.Warning != nil {
		outcome = metrics.OutcomeWarned
	}
	s.metrics.RecordAdmission(ctx, outcome)
	s.publish(ctx, events.New(events.TypePatientAdmitted, clinicID.String(), result.QueueItem.ArrivalTime, map[string]any{
		"appointment_id": appointmentID.String(),
		"patient_id":     appointment.PatientID.String(),
		"queue_item_id":  result.QueueItem.ID.String(),
		"with_warning":   result.Warning != nil,
	}))
	log.Info("patient admitted",
		zap.String("queue_item_id", result.QueueItem.ID.String()),
		zap.Bool("debt_warning", result.Warning != nil),
	)
	return result, nil
}

// gate runs the debt policy and queues the appointment. The appointment is
// already ARRIVED when it is called.
func (s *Service) gate(ctx context.Context, appointment domain.Appointment) (domain.AdmissionResult, error) {
	block, err := s.repo.BlocksDebtors(ctx, s.db, appointment.ClinicID)
	if err != nil {
		return domain.AdmissionResult{}, apperr.Persistence("load clinic settings", err)
	}

	patient, err := s.patients.Get(ctx, appointment.ClinicID, appointment.PatientID)
	if err != nil {
		return domain.AdmissionResult{}, err
	}

	result := domain.AdmissionResult{Appointment: appointment}
	if patient.HasDebt() {
		if block {
			return domain.AdmissionResult{}, &domain.PolicyBlockError{
				AppointmentID: appointment.ID,
				PatientID:     patient.ID,
				BalanceDue:    patient.BalanceDue,
				BadDebtor:     patient.BadDebtor,
			}
		}
		result.Warning = &domain.DebtWarning{
			Code:       domain.WarningPatientHasDebt,
			Message:    "patient has outstanding debt",
			BalanceDue: patient.BalanceDue,
			BadDebtor:  patient.BadDebtor,
		}
	}

	item := domain.QueueItem{
		ID:             s.genID.Generate(),
		ClinicID:       appointment.ClinicID,
		PatientID:      appointment.PatientID,
		ProfessionalID: appointment.ProfessionalID,
		AppointmentID:  appointment.ID,
		Status:         domain.QueueWaiting,
		Type:           appointment.Type,
		ArrivalTime:    s.clock.Now().UTC(),
	}
	rows, err := s.repo.InsertQueueItem(ctx, s.db, &item)
	if err != nil {
		return domain.AdmissionResult{}, apperr.Persistence("insert queue item", err)
	}
	if rows == 0 {
		// a concurrent admission queued it first
		existing, err := s.repo.FindQueueItem(ctx, s.db, appointment.ClinicID, appointment.ID)
		if err != nil {
			return domain.AdmissionResult{}, apperr.Persistence("load queue item", err)
		}
		if existing == nil {
			return domain.AdmissionResult{}, errors.New("queue item missing after conflicting insert")
		}
		item = *existing
		result.AlreadyAdmitted = true
	}
	result.QueueItem = item
	return result, nil
}

// restore is the compensating write: ARRIVED must not remain without a queue item.
func (s *Service) restore(ctx context.Context, log *zap.Logger, appointment domain.Appointment, prior domain.AppointmentStatus) {
	// compensation must run even when the request context is already done
	ctx = context.WithoutCancel(ctx)

	rows, err := s.repo.TransitionAppointment(ctx, s.db, appointment.ClinicID, appointment.ID, domain.AppointmentArrived, prior, s.clock.Now().UTC())
	if err != nil {
		log.Error("failed to restore appointment status",
			zap.String("restore_to", string(prior)),
			zap.Error(err),
		)
		return
	}
	if rows == 0 {
		log.Warn("appointment status changed before it could be restored", zap.String("restore_to", string(prior)))
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("event_type", event.Type), zap.Error(err))
	}
}
