// Package testutil tem dublês em memória dos repositórios e serviços externos
// usados pelos testes dos pacotes services e handlers.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"rl-imports/internal/gemini"
	"rl-imports/internal/models"
	"rl-imports/internal/repositories"
)

// ErrFalhaSimulada é o erro que os dublês devolvem quando a falha está ligada.
var ErrFalhaSimulada = errors.New("falha simulada")

// Veiculos imita VeiculoRepository. O slice interno fica do mais novo para o
// mais antigo. Os ajustes passam pelos setters porque os handlers leem o
// estado em outras goroutines.
type Veiculos struct {
	mu           sync.Mutex
	lista        []models.Veiculo
	proximoID    int
	falha        bool
	falhaLeitura bool
	leituras     int

	// se bloquear não for nil, Listar avisa em entrou e espera um valor em bloquear
	bloquear chan struct{}
	entrou   chan struct{}
}

// NewVeiculos recebe os iniciais já do mais novo para o mais antigo.
func NewVeiculos(iniciais ...models.Veiculo) *Veiculos {
	return &Veiculos{
		lista:     append([]models.Veiculo{}, iniciais...),
		proximoID: len(iniciais) + 1,
	}
}

// SetFalha faz as escritas falharem.
func (v *Veiculos) SetFalha(falha bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.falha = falha
}

// SetFalhaLeitura faz Listar falhar.
func (v *Veiculos) SetFalhaLeitura(falha bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.falhaLeitura = falha
}

func (v *Veiculos) SetProximoID(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.proximoID = id
}

// Segurar faz as próximas leituras esperarem até liberar ser chamada.
// O canal devolvido avisa quando uma leitura começa a esperar.
func (v *Veiculos) Segurar() (entrou <-chan struct{}, liberar func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bloquear = make(chan struct{})
	v.entrou = make(chan struct{}, 1)
	bloquear := v.bloquear
	var once sync.Once
	return v.entrou, func() { once.Do(func() { close(bloquear) }) }
}

func (v *Veiculos) TotalLeituras() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leituras
}

func (v *Veiculos) Listar(ctx context.Context) ([]models.Veiculo, error) {
	v.mu.Lock()
	v.leituras++
	bloquear, entrou := v.bloquear, v.entrou
	v.mu.Unlock()

	if bloquear != nil {
		select {
		case entrou <- struct{}{}:
		default:
		}
		select {
		case <-bloquear:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.falhaLeitura {
		return nil, ErrFalhaSimulada
	}
	return append([]models.Veiculo{}, v.lista...), nil
}

func (v *Veiculos) Inserir(_ context.Context, n models.NovoVeiculo) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.falha {
		return "", ErrFalhaSimulada
	}
	id := strconv.Itoa(v.proximoID)
	v.proximoID++
	v.lista = append([]models.Veiculo{{ID: id, NovoVeiculo: n}}, v.lista...)
	return id, nil
}

func (v *Veiculos) Atualizar(_ context.Context, veiculo models.Veiculo) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.falha {
		return ErrFalhaSimulada
	}
	for i := range v.lista {
		if v.lista[i].ID == veiculo.ID {
			v.lista[i] = veiculo
			return nil
		}
	}
	return repositories.ErrNaoEncontrado
}

func (v *Veiculos) Excluir(_ context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.falha {
		return ErrFalhaSimulada
	}
	for i := range v.lista {
		if v.lista[i].ID == id {
			v.lista = append(v.lista[:i], v.lista[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNaoEncontrado
}

// Conteudo devolve uma cópia do que está "no banco".
func (v *Veiculos) Conteudo() []models.Veiculo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Veiculo{}, v.lista...)
}

// Leads imita LeadRepository.
type Leads struct {
	mu               sync.Mutex
	lista            []models.Lead
	proximo          int
	falha            bool
	leituras         int
	antesDeResponder func()

	Agora func() time.Time
}

func NewLeads() *Leads {
	return &Leads{proximo: 1, Agora: time.Now}
}

// SetFalha faz leituras e escritas falharem.
func (l *Leads) SetFalha(falha bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.falha = falha
}

// SetAntesDeResponder instala um gancho que roda dentro de Listar, depois de
// copiar o resultado e antes de devolvê-lo.
func (l *Leads) SetAntesDeResponder(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.antesDeResponder = fn
}

func (l *Leads) TotalLeituras() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.leituras
}

func (l *Leads) Listar(_ context.Context) ([]models.Lead, error) {
	l.mu.Lock()
	l.leituras++
	if l.falha {
		l.mu.Unlock()
		return nil, ErrFalhaSimulada
	}
	copia := append([]models.Lead{}, l.lista...)
	gancho := l.antesDeResponder
	l.mu.Unlock()

	if gancho != nil {
		gancho()
	}
	return copia, nil
}

func (l *Leads) Inserir(_ context.Context, lead models.Lead) (models.Lead, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.falha {
		return models.Lead{}, ErrFalhaSimulada
	}
	lead.ID = strconv.Itoa(l.proximo)
	l.proximo++
	lead.CriadoEm = l.Agora()
	lead.Data = lead.CriadoEm.Format("02/01/2006, 15:04")
	l.lista = append([]models.Lead{lead}, l.lista...)
	return lead, nil
}

func (l *Leads) Conteudo() []models.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Lead{}, l.lista...)
}

// Verificador aceita os pares e-mail/senha do mapa.
type Verificador map[string]string

func (v Verificador) Autenticar(_ context.Context, email, senha string) (*models.Usuario, error) {
	esperada, ok := v[email]
	if !ok {
		return nil, repositories.ErrUsuarioNaoEncontrado
	}
	if esperada != senha {
		return nil, repositories.ErrSenhaIncorreta
	}
	return &models.Usuario{ID: 1, Email: email}, nil
}

// Gerador imita o cliente Gemini. Se Bloquear não for nil, Gerar espera um
// valor nele antes de responder.
type Gerador struct {
	mu       sync.Mutex
	Texto    string
	Err      error
	Chamadas int
	Prompt   string
	Params   gemini.Parametros
	Bloquear chan struct{}
	Entrou   chan struct{}
}

func (g *Gerador) Gerar(ctx context.Context, prompt string, p gemini.Parametros) (string, error) {
	g.mu.Lock()
	g.Chamadas++
	g.Prompt = prompt
	g.Params = p
	bloquear, entrou := g.Bloquear, g.Entrou
	texto, err := g.Texto, g.Err
	g.mu.Unlock()

	if entrou != nil {
		entrou <- struct{}{}
	}
	if bloquear != nil {
		select {
		case <-bloquear:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return texto, err
}

// Resolvedor devolve Mapa[ref] quando existe, senão a própria referência.
type Resolvedor struct {
	Mapa map[string]string
	Err  error
}

func (r Resolvedor) Resolver(_ context.Context, ref string) (string, error) {
	if novo, ok := r.Mapa[ref]; ok {
		return novo, r.Err
	}
	return ref, r.Err
}
