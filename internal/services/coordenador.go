// Package services contém o coordenador de estado de cada visitante do site:
// tela corrente, estoque, leads e autenticação, mais as operações que os
// formulários disparam.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rl-imports/internal/auth"
	"rl-imports/internal/clock"
	"rl-imports/internal/formatar"
	"rl-imports/internal/gemini"
	"rl-imports/internal/imagens"
	"rl-imports/internal/models"
	"rl-imports/internal/repositories"
)

const (
	MensagemSucesso    = "Solicitação enviada com sucesso!"
	DuracaoNotificacao = 3 * time.Second

	AvisoMarcaModelo = "Preencha Marca e Modelo primeiro."
	FallbackErro     = "Um veículo excepcional que une luxo e performance."
	FallbackVazio    = "Descrição premium indisponível no momento."

	promptDescricao = "Escreva uma descrição curta, elegante e persuasiva para um anúncio de venda de um %s %s ano %d. Foque em exclusividade, performance e sofisticação. Máximo 2 parágrafos."
)

var parametrosDescricao = gemini.Parametros{Temperatura: 0.7, TopP: 0.9}

var (
	ErrNaoAutorizado           = errors.New("acesso restrito ao lojista autenticado")
	ErrGeracaoEmAndamento      = errors.New("geração de descrição já em andamento")
	ErrMarcaModeloObrigatorios = errors.New("marca e modelo são obrigatórios")
	// ErrFalhaGravacao embrulha qualquer falha do banco numa escrita. Nada
	// muda no estado e o usuário pode tentar de novo.
	ErrFalhaGravacao = errors.New("falha ao gravar")
)

type VeiculoStore interface {
	Listar(ctx context.Context) ([]models.Veiculo, error)
	Inserir(ctx context.Context, v models.NovoVeiculo) (string, error)
	Atualizar(ctx context.Context, v models.Veiculo) error
	Excluir(ctx context.Context, id string) error
}

type LeadStore interface {
	Listar(ctx context.Context) ([]models.Lead, error)
	Inserir(ctx context.Context, lead models.Lead) (models.Lead, error)
}

// Autenticador é o lado de sessão do auth.Servico.
type Autenticador interface {
	Entrar(ctx context.Context, email, senha string) (*models.Sessao, error)
	ObterSessao(ctx context.Context, token string) (*models.Sessao, error)
	Sair(ctx context.Context, token string) error
	AoMudarSessao(fn func(models.EventoSessao)) *auth.Inscricao
}

type GeradorTexto interface {
	Gerar(ctx context.Context, prompt string, p gemini.Parametros) (string, error)
}

type ResolvedorImagem interface {
	Resolver(ctx context.Context, ref string) (string, error)
}

// Dependencias do coordenador. Gerador e Imagens são opcionais.
type Dependencias struct {
	Veiculos VeiculoStore
	Leads    LeadStore
	Auth     Autenticador
	Gerador  GeradorTexto
	Imagens  ResolvedorImagem
	Relogio  clock.Clock
	Logger   *slog.Logger
}

// Coordenador é a única fonte de verdade do estado de um visitante. Todas as
// mutações passam por ele; nenhuma chamada externa é feita segurando mu.
type Coordenador struct {
	veiculos VeiculoStore
	leads    LeadStore
	auth     Autenticador
	gerador  GeradorTexto
	imagens  ResolvedorImagem
	relogio  clock.Clock
	logger   *slog.Logger

	inscricao *auth.Inscricao

	mu          sync.Mutex
	view        models.View
	carregando  int
	autenticado bool
	email       string
	token       string
	// epoca muda a cada entrada ou saída; uma leitura de leads iniciada em
	// outra época é descartada.
	epoca         uint64
	listaVeiculos []models.Veiculo
	listaLeads    []models.Lead
	enviadoEm     time.Time
	gerando       bool
}

func NewCoordenador(d Dependencias) *Coordenador {
	c := &Coordenador{
		veiculos:      d.Veiculos,
		leads:         d.Leads,
		auth:          d.Auth,
		gerador:       d.Gerador,
		imagens:       d.Imagens,
		relogio:       d.Relogio,
		logger:        d.Logger,
		view:          models.ViewHome,
		listaVeiculos: []models.Veiculo{},
		listaLeads:    []models.Lead{},
	}
	if c.relogio == nil {
		c.relogio = clock.Real()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.inscricao = c.auth.AoMudarSessao(c.aoMudarSessao)
	return c
}

// Encerrar cancela a inscrição nos eventos de sessão.
func (c *Coordenador) Encerrar() {
	c.inscricao.Cancelar()
}

// Inicializar lê a sessão do token e recarrega estoque e, se houver sessão,
// os leads. Pode ser chamado várias vezes; o resultado só depende do banco.
func (c *Coordenador) Inicializar(ctx context.Context, token string) {
	defer c.iniciarCarga()()
	c.inicializar(ctx, token)
}

// iniciarCarga liga o indicador de carregamento e devolve a função que o desliga.
func (c *Coordenador) iniciarCarga() func() {
	c.mu.Lock()
	c.carregando++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.carregando--
		c.mu.Unlock()
	}
}

func (c *Coordenador) inicializar(ctx context.Context, token string) {
	sess, err := c.auth.ObterSessao(ctx, token)
	if err != nil {
		c.logger.Error("falha ao obter sessão", "erro", err)
		sess = nil
	}

	c.mu.Lock()
	if sess != nil {
		if !c.autenticado || c.token != sess.Token {
			c.epoca++
			c.listaLeads = []models.Lead{}
		}
		c.autenticado = true
		c.token = sess.Token
		c.email = sess.Email
	} else {
		c.limparAuth()
	}
	c.mu.Unlock()

	c.recarregarVeiculos(ctx)
	if sess != nil {
		c.recarregarLeads(ctx)
	}
}

// Entrar devolve false para credenciais inválidas ou falha do serviço.
func (c *Coordenador) Entrar(ctx context.Context, email, senha string) bool {
	sess, err := c.auth.Entrar(ctx, email, senha)
	if err != nil {
		c.logger.Warn("falha no login", "email", email, "erro", err)
		return false
	}

	c.mu.Lock()
	c.epoca++
	c.autenticado = true
	c.token = sess.Token
	c.email = sess.Email
	c.listaLeads = []models.Lead{}
	c.view = models.ViewAdminDashboard
	c.mu.Unlock()

	c.recarregarLeads(ctx)
	return true
}

// Sair limpa a autenticação localmente antes de avisar o serviço de sessão.
func (c *Coordenador) Sair(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	c.limparAuth()
	c.view = models.ViewHome
	c.mu.Unlock()

	if token == "" {
		return
	}
	if err := c.auth.Sair(ctx, token); err != nil {
		c.logger.Error("falha ao encerrar sessão", "erro", err)
	}
}

// VerificarSessao confirma que a sessão ainda existe; some ou venceu, o
// visitante passa a ser anônimo.
func (c *Coordenador) VerificarSessao(ctx context.Context) {
	c.mu.Lock()
	token, autenticado := c.token, c.autenticado
	c.mu.Unlock()
	if !autenticado {
		return
	}

	sess, err := c.auth.ObterSessao(ctx, token)
	if err != nil {
		c.logger.Warn("não foi possível verificar a sessão", "erro", err)
		return
	}
	if sess != nil {
		return
	}

	c.mu.Lock()
	if c.token == token {
		c.limparAuth()
	}
	c.mu.Unlock()
}

// Token devolve o token da sessão corrente, vazio se anônimo.
func (c *Coordenador) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Autenticado confere a sessão antes de responder.
func (c *Coordenador) Autenticado(ctx context.Context) bool {
	return c.exigirAuth(ctx) == nil
}

func (c *Coordenador) Navegar(v models.View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}

// SubmeterLead grava o lead, liga a notificação de sucesso e volta para a
// home. A lista local só é recarregada para lojista autenticado.
func (c *Coordenador) SubmeterLead(ctx context.Context, lead models.Lead) error {
	if err := lead.Validar(); err != nil {
		return err
	}
	if _, err := c.leads.Inserir(ctx, lead); err != nil {
		c.logger.Error("falha ao gravar lead", "tipo", lead.Detalhes.Tipo(), "erro", err)
		return fmt.Errorf("%w: %w", ErrFalhaGravacao, err)
	}

	c.mu.Lock()
	c.enviadoEm = c.relogio.Now()
	c.view = models.ViewHome
	autenticado := c.autenticado
	c.mu.Unlock()

	if autenticado {
		c.recarregarLeads(ctx)
	}
	return nil
}

func (c *Coordenador) AdicionarVeiculo(ctx context.Context, n models.NovoVeiculo) (models.Veiculo, error) {
	if err := c.exigirAuth(ctx); err != nil {
		return models.Veiculo{}, err
	}
	if err := n.Validar(); err != nil {
		return models.Veiculo{}, err
	}
	ref, err := c.resolverImagem(ctx, n.ImagemURL)
	if err != nil {
		return models.Veiculo{}, err
	}
	n.ImagemURL = ref

	id, err := c.veiculos.Inserir(ctx, n)
	if err != nil {
		c.logger.Error("falha ao adicionar veículo", "marca", n.Marca, "modelo", n.Modelo, "erro", err)
		return models.Veiculo{}, fmt.Errorf("%w: %w", ErrFalhaGravacao, err)
	}

	v := models.Veiculo{ID: id, NovoVeiculo: n}
	c.mu.Lock()
	c.listaVeiculos = append([]models.Veiculo{v}, c.listaVeiculos...)
	c.mu.Unlock()
	return v, nil
}

// AtualizarVeiculo troca o veículo no lugar, sem reordenar a lista, e
// devolve o que foi gravado.
func (c *Coordenador) AtualizarVeiculo(ctx context.Context, v models.Veiculo) (models.Veiculo, error) {
	if err := c.exigirAuth(ctx); err != nil {
		return models.Veiculo{}, err
	}
	if strings.TrimSpace(v.ID) == "" {
		return models.Veiculo{}, fmt.Errorf("%w: id obrigatório", models.ErrDadosInvalidos)
	}
	if err := v.Validar(); err != nil {
		return models.Veiculo{}, err
	}
	ref, err := c.resolverImagem(ctx, v.ImagemURL)
	if err != nil {
		return models.Veiculo{}, err
	}
	v.ImagemURL = ref

	if err := c.veiculos.Atualizar(ctx, v); err != nil {
		return models.Veiculo{}, c.erroEscrita("atualizar", v.ID, err)
	}

	c.mu.Lock()
	for i := range c.listaVeiculos {
		if c.listaVeiculos[i].ID == v.ID {
			c.listaVeiculos[i] = v
			break
		}
	}
	c.mu.Unlock()
	return v, nil
}

func (c *Coordenador) ExcluirVeiculo(ctx context.Context, id string) error {
	if err := c.exigirAuth(ctx); err != nil {
		return err
	}
	if err := c.veiculos.Excluir(ctx, id); err != nil {
		return c.erroEscrita("excluir", id, err)
	}

	c.mu.Lock()
	lista := make([]models.Veiculo, 0, len(c.listaVeiculos))
	for _, v := range c.listaVeiculos {
		if v.ID != id {
			lista = append(lista, v)
		}
	}
	c.listaVeiculos = lista
	c.mu.Unlock()
	return nil
}

// GerarDescricao pede ao gerador um texto de anúncio. Falha do serviço vira
// texto padrão; só validação, autorização e chamada concorrente dão erro.
func (c *Coordenador) GerarDescricao(ctx context.Context, marca, modelo string, ano int) (string, error) {
	if err := c.exigirAuth(ctx); err != nil {
		return "", err
	}
	if strings.TrimSpace(marca) == "" || strings.TrimSpace(modelo) == "" {
		return "", ErrMarcaModeloObrigatorios
	}

	c.mu.Lock()
	if c.gerando {
		c.mu.Unlock()
		return "", ErrGeracaoEmAndamento
	}
	c.gerando = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.gerando = false
		c.mu.Unlock()
	}()

	if c.gerador == nil {
		return FallbackErro, nil
	}
	texto, err := c.gerador.Gerar(ctx, fmt.Sprintf(promptDescricao, marca, modelo, ano), parametrosDescricao)
	if err != nil {
		c.logger.Error("erro ao gerar descrição", "marca", marca, "modelo", modelo, "erro", err)
		return FallbackErro, nil
	}
	if strings.TrimSpace(texto) == "" {
		return FallbackVazio, nil
	}
	return texto, nil
}

// VeiculoExibicao acrescenta os rótulos já formatados em pt-BR.
type VeiculoExibicao struct {
	models.Veiculo
	PrecoFormatado         string `json:"priceLabel"`
	QuilometragemFormatada string `json:"mileageLabel"`
}

// Estado é a fotografia que a interface renderiza.
type Estado struct {
	View             models.View       `json:"view"`
	Carregando       bool              `json:"isLoading"`
	Auth             models.EstadoAuth `json:"auth"`
	Restrito         bool              `json:"restricted"`
	Veiculos         []VeiculoExibicao `json:"vehicles"`
	Leads            []models.Lead     `json:"leads"`
	Notificacao      string            `json:"notification,omitempty"`
	GerandoDescricao bool              `json:"isGenerating"`
}

func (c *Coordenador) Estado() Estado {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Estado{
		View:             c.view,
		Carregando:       c.carregando > 0,
		Auth:             models.EstadoAuth{Autenticado: c.autenticado, Email: c.email},
		Restrito:         c.view == models.ViewAdminDashboard && !c.autenticado,
		Veiculos:         make([]VeiculoExibicao, 0, len(c.listaVeiculos)),
		Leads:            []models.Lead{},
		GerandoDescricao: c.gerando,
	}
	for _, v := range c.listaVeiculos {
		e.Veiculos = append(e.Veiculos, VeiculoExibicao{
			Veiculo:                v,
			PrecoFormatado:         formatar.Moeda(v.Preco),
			QuilometragemFormatada: formatar.Numero(v.Quilometragem) + " km",
		})
	}
	if c.autenticado {
		e.Leads = append(e.Leads, c.listaLeads...)
	}
	if !c.enviadoEm.IsZero() && c.relogio.Now().Before(c.enviadoEm.Add(DuracaoNotificacao)) {
		e.Notificacao = MensagemSucesso
	}
	return e
}

// Leads devolve a lista de leads; só para lojista autenticado.
func (c *Coordenador) Leads(ctx context.Context) ([]models.Lead, error) {
	if err := c.exigirAuth(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Lead{}, c.listaLeads...), nil
}

// aoMudarSessao só reage a eventos do próprio token. SIGNED_IN já foi
// aplicado por Entrar ou Inicializar quando chega aqui.
func (c *Coordenador) aoMudarSessao(ev models.EventoSessao) {
	if ev.Tipo != models.EventoSaiu && ev.Tipo != models.EventoExpirou {
		return
	}
	c.mu.Lock()
	if ev.Token == "" || ev.Token != c.token {
		c.mu.Unlock()
		return
	}
	c.limparAuth()
	c.mu.Unlock()
	c.logger.Info("sessão encerrada", "tipo", ev.Tipo)
}

// limparAuth exige mu.
func (c *Coordenador) limparAuth() {
	if c.autenticado || c.token != "" {
		c.epoca++
	}
	c.autenticado = false
	c.token = ""
	c.email = ""
	c.listaLeads = []models.Lead{}
}

// exigirAuth confere a sessão no serviço antes de liberar a operação, para
// que uma sessão vencida não continue valendo.
func (c *Coordenador) exigirAuth(ctx context.Context) error {
	c.VerificarSessao(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.autenticado {
		return ErrNaoAutorizado
	}
	return nil
}

func (c *Coordenador) recarregarVeiculos(ctx context.Context) {
	lista, err := c.veiculos.Listar(ctx)
	if err != nil {
		c.logger.Error("falha ao carregar veículos", "erro", err)
		return
	}
	c.mu.Lock()
	c.listaVeiculos = lista
	c.mu.Unlock()
}

func (c *Coordenador) recarregarLeads(ctx context.Context) {
	c.mu.Lock()
	if !c.autenticado {
		c.mu.Unlock()
		return
	}
	epoca := c.epoca
	c.mu.Unlock()

	lista, err := c.leads.Listar(ctx)
	if err != nil {
		c.logger.Error("falha ao carregar leads", "erro", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.autenticado || c.epoca != epoca {
		c.logger.Debug("leads descartados, sessão mudou durante a leitura")
		return
	}
	c.listaLeads = lista
}

func (c *Coordenador) resolverImagem(ctx context.Context, ref string) (string, error) {
	if c.imagens == nil {
		return ref, nil
	}
	novo, err := c.imagens.Resolver(ctx, ref)
	if errors.Is(err, imagens.ErrReferenciaInvalida) {
		return "", fmt.Errorf("%w: %v", models.ErrDadosInvalidos, err)
	}
	if err != nil {
		c.logger.Warn("não foi possível resolver a imagem, mantendo a referência", "ref", ref, "erro", err)
		return ref, nil
	}
	return novo, nil
}

func (c *Coordenador) erroEscrita(op, id string, err error) error {
	if errors.Is(err, repositories.ErrNaoEncontrado) {
		return err
	}
	c.logger.Error("falha ao "+op+" veículo", "id", id, "erro", err)
	return fmt.Errorf("%w: %w", ErrFalhaGravacao, err)
}
