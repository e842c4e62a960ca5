package rd

import (
	"context"

	"github.com/jhoicas/cokelateh-api/internal/domain/entity"
	"github.com/jhoicas/cokelateh-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
// MoveToProduction crea el pedido y marca el producto de forma atómica.
type TxRunner interface {
	RunRD(ctx context.Context, fn func(rdRepo repository.RDRepository, orderRepo repository.OrderRepository) error) error
}

// AuditRecorder registra entradas de auditoría.
type AuditRecorder interface {
	Record(ctx context.Context, log entity.AuditLog) error
}
