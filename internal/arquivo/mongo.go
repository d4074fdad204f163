// Package arquivo mantém uma cópia de cada lead captado no MongoDB, fora do
// banco principal, para o time comercial.
package arquivo

import (
	"context"
	"log/slog"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"rl-imports/internal/models"
)

type Mongo struct {
	session *mgo.Session
	banco   string
}

func NovoMongo(url, banco string) (*Mongo, error) {
	session, err := mgo.DialWithTimeout(url, 5*time.Second)
	if err != nil {
		return nil, err
	}
	session.SetMode(mgo.Monotonic, true)
	return &Mongo{session: session, banco: banco}, nil
}

// Registrar grava o lead na coleção leads.
func (m *Mongo) Registrar(lead models.Lead) error {
	s := m.session.Copy()
	defer s.Close()
	return s.DB(m.banco).C("leads").Insert(Documento(lead))
}

func (m *Mongo) Fechar() {
	m.session.Close()
}

// Documento achata o lead no mesmo formato da tabela leads.
func Documento(lead models.Lead) bson.M {
	doc := bson.M{
		"lead_id":    lead.ID,
		"name":       lead.Nome,
		"phone":      lead.Telefone,
		"email":      lead.Email,
		"created_at": lead.CriadoEm,
	}
	switch d := lead.Detalhes.(type) {
	case models.DetalhesVenda:
		doc["type"] = string(models.TipoVenda)
		doc["brand"] = d.Marca
		doc["model"] = d.Modelo
		doc["year"] = d.Ano
		doc["mileage"] = d.Quilometragem
		doc["intended_value"] = d.ValorPretendido.String()
		doc["observations"] = d.Observacoes
	case models.DetalhesFinanciamento:
		doc["type"] = string(models.TipoFinanciamento)
		doc["cpf"] = d.CPF
		doc["vehicle_value"] = d.ValorVeiculo.String()
		doc["down_payment"] = d.Entrada.String()
		doc["installments"] = d.Parcelas
	}
	return doc
}

// Arquivador recebe uma cópia de cada lead gravado.
type Arquivador interface {
	Registrar(lead models.Lead) error
}

// LeadStore é o repositório decorado.
type LeadStore interface {
	Listar(ctx context.Context) ([]models.Lead, error)
	Inserir(ctx context.Context, lead models.Lead) (models.Lead, error)
}

// LeadStoreArquivado grava no repositório e depois arquiva. Falha no arquivo
// só vai para o log; o lead já está salvo.
type LeadStoreArquivado struct {
	LeadStore
	arquivo Arquivador
	logger  *slog.Logger
}

func NovoLeadStoreArquivado(base LeadStore, arq Arquivador, logger *slog.Logger) *LeadStoreArquivado {
	return &LeadStoreArquivado{LeadStore: base, arquivo: arq, logger: logger}
}

func (s *LeadStoreArquivado) Inserir(ctx context.Context, lead models.Lead) (models.Lead, error) {
	salvo, err := s.LeadStore.Inserir(ctx, lead)
	if err != nil {
		return salvo, err
	}
	if err := s.arquivo.Registrar(salvo); err != nil {
		s.logger.Error("falha ao arquivar lead no mongo", "lead_id", salvo.ID, "erro", err)
	}
	return salvo, nil
}
