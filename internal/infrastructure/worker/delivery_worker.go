package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/service"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// Dispatcher delivers an issued invoice to the customer. Delivery is a
// fire-and-forget side effect: its outcome is recorded on the invoice but
// never feeds back into the payment state machine.
type Dispatcher interface {
	Send(ctx context.Context, invoice *entity.Invoice) error
}

// LogDispatcher is the default dispatcher; it only logs the delivery.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that logs instead of sending
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Send logs the invoice delivery
func (d *LogDispatcher) Send(ctx context.Context, invoice *entity.Invoice) error {
	d.logger.Info("Delivering invoice",
		zap.String("number", invoice.Number),
		zap.String("customer_email", invoice.Customer.Email))
	return nil
}

// DeliveryWorker periodically scans for invoices that have not been delivered
// and dispatches them, marking the outcome on each invoice.
type DeliveryWorker struct {
	invoices   service.InvoiceService
	dispatcher Dispatcher
	interval   time.Duration
	logger     *zap.Logger

	wg   sync.WaitGroup
	done chan struct{}
}

// NewDeliveryWorker creates a new delivery worker
func NewDeliveryWorker(
	invoices service.InvoiceService,
	dispatcher Dispatcher,
	interval time.Duration,
	logger *zap.Logger,
) *DeliveryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DeliveryWorker{
		invoices:   invoices,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Name returns the worker name
func (w *DeliveryWorker) Name() string { return "invoice-delivery" }

// Start launches the scan loop
func (w *DeliveryWorker) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop waits for the scan loop to exit
func (w *DeliveryWorker) Stop() error {
	close(w.done)
	w.wg.Wait()
	return nil
}

func (w *DeliveryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.deliverPending(ctx)
		}
	}
}

// deliverPending dispatches every invoice not yet delivered. A failed
// dispatch is recorded as failed and retried on the next scan.
func (w *DeliveryWorker) deliverPending(ctx context.Context) {
	invoices, err := w.invoices.List(ctx, entity.InvoiceFilter{})
	if err != nil {
		w.logger.Error("Delivery scan failed", zap.Error(err))
		return
	}

	for _, invoice := range invoices {
		if invoice.DeliveryStatus == entity.DeliverySent {
			continue
		}
		if invoice.Status == entity.InvoiceCancelled {
			continue
		}

		status := entity.DeliverySent
		if err := w.dispatcher.Send(ctx, invoice); err != nil {
			w.logger.Error("Invoice delivery failed",
				zap.String("number", invoice.Number),
				zap.Error(err))
			status = entity.DeliveryFailed
		}
		if err := w.invoices.MarkDelivery(ctx, invoice.ID, status); err != nil {
			w.logger.Error("Failed to record delivery outcome",
				zap.Int64("invoice_id", invoice.ID),
				zap.Error(err))
		}
	}
}
