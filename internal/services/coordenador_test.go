package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rl-imports/internal/auth"
	"rl-imports/internal/clock"
	"rl-imports/internal/models"
	"rl-imports/internal/repositories"
	"rl-imports/internal/services"
	"rl-imports/internal/testutil"
)

const (
	emailAdmin = "admin@rlimports.com"
	senhaAdmin = "segredo"
)

type ambiente struct {
	veiculos *testutil.Veiculos
	leads    *testutil.Leads
	auth     *auth.Servico
	gerador  *testutil.Gerador
	relogio  *clock.Fake
	logger   *slog.Logger
}

func novoAmbiente(t *testing.T, iniciais ...models.Veiculo) *ambiente {
	t.Helper()
	relogio := clock.NewFake(time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &ambiente{
		veiculos: testutil.NewVeiculos(iniciais...),
		leads:    testutil.NewLeads(),
		auth: auth.NewServico(testutil.Verificador{emailAdmin: senhaAdmin}, auth.NewMemoriaStore(), logger,
			auth.WithRelogio(relogio), auth.WithTTL(time.Hour)),
		gerador: &testutil.Gerador{},
		relogio: relogio,
		logger:  logger,
	}
}

func (a *ambiente) coordenador() *services.Coordenador {
	return services.NewCoordenador(services.Dependencias{
		Veiculos: a.veiculos,
		Leads:    a.leads,
		Auth:     a.auth,
		Gerador:  a.gerador,
		Relogio:  a.relogio,
		Logger:   a.logger,
	})
}

func estoque() []models.Veiculo {
	return []models.Veiculo{
		{ID: "2", NovoVeiculo: models.NovoVeiculo{Marca: "BMW", Modelo: "M4", Ano: 2023, Quilometragem: 5000, Preco: decimal.NewFromInt(720000)}},
		{ID: "1", NovoVeiculo: models.NovoVeiculo{Marca: "Porsche", Modelo: "911", Ano: 2022, Quilometragem: 12000, Preco: decimal.NewFromInt(850000)}},
	}
}

func leadVenda() models.Lead {
	return models.NovoLeadVenda(
		models.ContatoLead{Nome: "Ana", Telefone: "11999990000", Email: "ana@exemplo.com"},
		models.DetalhesVenda{Marca: "Audi", Modelo: "A4", Ano: 2020, Quilometragem: 30000, ValorPretendido: decimal.NewFromInt(180000)},
	)
}

func veiculosDoEstado(e services.Estado) []models.Veiculo {
	lista := make([]models.Veiculo, 0, len(e.Veiculos))
	for _, v := range e.Veiculos {
		lista = append(lista, v.Veiculo)
	}
	return lista
}

func TestInicializarSemSessao(t *testing.T) {
	a := novoAmbiente(t, estoque()...)
	c := a.coordenador()

	c.Inicializar(context.Background(), "")

	e := c.Estado()
	require.False(t, e.Carregando)
	require.False(t, e.Auth.Autenticado)
	require.Equal(t, models.ViewHome, e.View)
	require.Equal(t, estoque(), veiculosDoEstado(e))
	require.Equal(t, "R$ 720.000,00", e.Veiculos[0].PrecoFormatado)
	require.Equal(t, "5.000 km", e.Veiculos[0].QuilometragemFormatada)
	require.Empty(t, e.Leads)
	require.Zero(t, a.leads.TotalLeituras())
}

func TestInicializarComSessaoCarregaLeads(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	_, err := a.leads.Inserir(ctx, leadVenda())
	require.NoError(t, err)
	sess, err := a.auth.Entrar(ctx, emailAdmin, senhaAdmin)
	require.NoError(t, err)

	c := a.coordenador()
	c.Inicializar(ctx, sess.Token)

	e := c.Estado()
	require.True(t, e.Auth.Autenticado)
	require.Equal(t, emailAdmin, e.Auth.Email)
	require.Len(t, e.Leads, 1)
}

func TestInicializarDuasVezesMesmoResultado(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	c := a.coordenador()

	c.Inicializar(ctx, "")
	primeira := c.Estado()
	c.Inicializar(ctx, "")
	segunda := c.Estado()

	require.Equal(t, primeira.Veiculos, segunda.Veiculos)
	require.Equal(t, a.veiculos.Conteudo(), veiculosDoEstado(segunda))
}

func TestFalhaDeLeituraMantemListaAnterior(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	a.veiculos.SetFalhaLeitura(true)
	c := a.coordenador()

	c.Inicializar(ctx, "")
	require.Empty(t, c.Estado().Veiculos)

	a.veiculos.SetFalhaLeitura(false)
	c.Inicializar(ctx, "")
	require.Len(t, c.Estado().Veiculos, 2)

	a.veiculos.SetFalhaLeitura(true)
	c.Inicializar(ctx, "")
	require.Len(t, c.Estado().Veiculos, 2)
}

func TestEntrar(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	c.Inicializar(ctx, "")
	c.Navegar(models.ViewAdminLogin)

	require.False(t, c.Entrar(ctx, emailAdmin, "errada"))
	e := c.Estado()
	require.False(t, e.Auth.Autenticado)
	require.Equal(t, models.ViewAdminLogin, e.View)
	require.Empty(t, c.Token())

	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	e = c.Estado()
	require.True(t, e.Auth.Autenticado)
	require.Equal(t, emailAdmin, e.Auth.Email)
	require.Equal(t, models.ViewAdminDashboard, e.View)
	require.NotEmpty(t, c.Token())
}

func TestSairLimpaTudoEmQualquerTela(t *testing.T) {
	for _, view := range []models.View{models.ViewAdminDashboard, models.ViewInventory, models.ViewFinanceForm} {
		t.Run(string(view), func(t *testing.T) {
			ctx := context.Background()
			a := novoAmbiente(t)
			_, err := a.leads.Inserir(ctx, leadVenda())
			require.NoError(t, err)
			c := a.coordenador()
			require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
			require.Len(t, c.Estado().Leads, 1)
			token := c.Token()
			c.Navegar(view)

			c.Sair(ctx)

			e := c.Estado()
			require.False(t, e.Auth.Autenticado)
			require.Empty(t, e.Auth.Email)
			require.Empty(t, e.Leads)
			require.Equal(t, models.ViewHome, e.View)

			sess, err := a.auth.ObterSessao(ctx, token)
			require.NoError(t, err)
			require.Nil(t, sess)
		})
	}
}

func TestLeadAnonimoNaoApareceNaLista(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	c.Inicializar(ctx, "")
	c.Navegar(models.ViewSellForm)

	require.NoError(t, c.SubmeterLead(ctx, leadVenda()))

	require.Len(t, a.leads.Conteudo(), 1)
	e := c.Estado()
	require.Empty(t, e.Leads)
	require.Equal(t, models.ViewHome, e.View)
	require.Equal(t, services.MensagemSucesso, e.Notificacao)
	require.Zero(t, a.leads.TotalLeituras())
	_, err := c.Leads(ctx)
	require.ErrorIs(t, err, services.ErrNaoAutorizado)

	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	lista, err := c.Leads(ctx)
	require.NoError(t, err)
	require.Len(t, lista, 1)
}

func TestLeadComLojistaAutenticadoRecarrega(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	require.Empty(t, c.Estado().Leads)

	fin := models.NovoLeadFinanciamento(
		models.ContatoLead{Nome: "Bruno", Telefone: "11988887777", Email: "bruno@exemplo.com"},
		models.DetalhesFinanciamento{CPF: "123.456.789-09", ValorVeiculo: decimal.NewFromInt(500000), Entrada: decimal.NewFromInt(100000)},
	)
	require.NoError(t, c.SubmeterLead(ctx, fin))

	e := c.Estado()
	require.Len(t, e.Leads, 1)
	require.Equal(t, models.TipoFinanciamento, e.Leads[0].Detalhes.Tipo())
	require.Equal(t, models.ViewHome, e.View)
}

func TestNotificacaoDuraTresSegundos(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	require.Empty(t, c.Estado().Notificacao)

	require.NoError(t, c.SubmeterLead(ctx, leadVenda()))
	require.Equal(t, services.MensagemSucesso, c.Estado().Notificacao)

	a.relogio.Advance(2999 * time.Millisecond)
	require.Equal(t, services.MensagemSucesso, c.Estado().Notificacao)

	a.relogio.Advance(time.Millisecond)
	require.Empty(t, c.Estado().Notificacao)
}

func TestLeadInvalidoOuFalhaNaoMudaEstado(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	c.Navegar(models.ViewSellForm)

	invalido := leadVenda()
	invalido.Email = "sem-arroba"
	require.ErrorIs(t, c.SubmeterLead(ctx, invalido), models.ErrDadosInvalidos)

	a.leads.SetFalha(true)
	err := c.SubmeterLead(ctx, leadVenda())
	require.ErrorIs(t, err, services.ErrFalhaGravacao)
	require.ErrorIs(t, err, testutil.ErrFalhaSimulada)

	e := c.Estado()
	require.Equal(t, models.ViewSellForm, e.View)
	require.Empty(t, e.Notificacao)
}

func TestAdicionarVeiculoRecebeIDDoBanco(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	a.veiculos.SetProximoID(42)
	c := a.coordenador()
	c.Inicializar(ctx, "")
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))

	novo := models.NovoVeiculo{
		Marca:         "Audi",
		Modelo:        "RS6",
		Ano:           2024,
		Quilometragem: 100,
		Preco:         decimal.NewFromInt(650000),
		ImagemURL:     "http://x/y.jpg",
		Descricao:     "",
	}
	v, err := c.AdicionarVeiculo(ctx, novo)
	require.NoError(t, err)
	require.Equal(t, "42", v.ID)

	e := c.Estado()
	require.Len(t, e.Veiculos, 3)
	require.Equal(t, models.Veiculo{ID: "42", NovoVeiculo: novo}, e.Veiculos[0].Veiculo)
}

func TestSequenciaDeEscritasEspelhaOBanco(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	c := a.coordenador()
	c.Inicializar(ctx, "")
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))

	v1, err := c.AdicionarVeiculo(ctx, models.NovoVeiculo{Marca: "Ferrari", Modelo: "Roma", Ano: 2023, Preco: decimal.NewFromInt(2100000)})
	require.NoError(t, err)
	_, err = c.AdicionarVeiculo(ctx, models.NovoVeiculo{Marca: "Lamborghini", Modelo: "Urus", Ano: 2024, Preco: decimal.NewFromInt(3200000)})
	require.NoError(t, err)

	v1.Preco = decimal.NewFromInt(1990000)
	v1.Descricao = "Revisada"
	salvo, err := c.AtualizarVeiculo(ctx, v1)
	require.NoError(t, err)
	require.Equal(t, v1, salvo)
	require.NoError(t, c.ExcluirVeiculo(ctx, "1"))

	require.Equal(t, a.veiculos.Conteudo(), veiculosDoEstado(c.Estado()))

	c.Inicializar(ctx, c.Token())
	require.Equal(t, a.veiculos.Conteudo(), veiculosDoEstado(c.Estado()))
}

func TestEscritaDeVeiculoExigeLogin(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	c := a.coordenador()
	c.Inicializar(ctx, "")

	_, err := c.AdicionarVeiculo(ctx, models.NovoVeiculo{Marca: "Audi", Modelo: "RS6", Ano: 2024})
	require.ErrorIs(t, err, services.ErrNaoAutorizado)
	require.ErrorIs(t, c.ExcluirVeiculo(ctx, "1"), services.ErrNaoAutorizado)
	_, err = c.AtualizarVeiculo(ctx, estoque()[0])
	require.ErrorIs(t, err, services.ErrNaoAutorizado)
	require.Len(t, a.veiculos.Conteudo(), 2)
}

func TestFalhaDeEscritaDeVeiculoNaoMudaLista(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	c := a.coordenador()
	c.Inicializar(ctx, "")
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	antes := c.Estado().Veiculos

	a.veiculos.SetFalha(true)
	_, err := c.AdicionarVeiculo(ctx, models.NovoVeiculo{Marca: "Audi", Modelo: "RS6", Ano: 2024})
	require.ErrorIs(t, err, services.ErrFalhaGravacao)

	alterado := estoque()[0]
	alterado.Preco = decimal.NewFromInt(1)
	_, err = c.AtualizarVeiculo(ctx, alterado)
	require.ErrorIs(t, err, services.ErrFalhaGravacao)
	require.ErrorIs(t, c.ExcluirVeiculo(ctx, "1"), services.ErrFalhaGravacao)

	require.Equal(t, antes, c.Estado().Veiculos)

	a.veiculos.SetFalha(false)
	require.ErrorIs(t, c.ExcluirVeiculo(ctx, "999"), repositories.ErrNaoEncontrado)
}

func TestImagemPassaPeloResolvedor(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := services.NewCoordenador(services.Dependencias{
		Veiculos: a.veiculos,
		Leads:    a.leads,
		Auth:     a.auth,
		Imagens:  testutil.Resolvedor{Mapa: map[string]string{"https://loja/anuncio": "https://loja/foto.jpg"}},
		Relogio:  a.relogio,
		Logger:   a.logger,
	})
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))

	v, err := c.AdicionarVeiculo(ctx, models.NovoVeiculo{Marca: "Audi", Modelo: "R8", Ano: 2021, ImagemURL: "https://loja/anuncio"})
	require.NoError(t, err)
	require.Equal(t, "https://loja/foto.jpg", v.ImagemURL)
	require.Equal(t, "https://loja/foto.jpg", a.veiculos.Conteudo()[0].ImagemURL)

	v.ImagemURL = "https://loja/anuncio"
	v.Descricao = "Motor V10."
	salvo, err := c.AtualizarVeiculo(ctx, v)
	require.NoError(t, err)
	require.Equal(t, "https://loja/foto.jpg", salvo.ImagemURL)
	require.Equal(t, "Motor V10.", salvo.Descricao)
	require.Equal(t, salvo, a.veiculos.Conteudo()[0])
	require.Equal(t, salvo, c.Estado().Veiculos[0].Veiculo)
}

func TestGerarDescricaoServicoForaDoAr(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	a.gerador.Err = errors.New("connection refused")
	c := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))

	texto, err := c.GerarDescricao(ctx, "Ferrari", "488", 2021)
	require.NoError(t, err)
	require.Equal(t, "Um veículo excepcional que une luxo e performance.", texto)
	require.False(t, c.Estado().GerandoDescricao)

	require.Equal(t, 1, a.gerador.Chamadas)
	require.Contains(t, a.gerador.Prompt, "um Ferrari 488 ano 2021.")
	require.InDelta(t, 0.7, a.gerador.Params.Temperatura, 1e-9)
	require.InDelta(t, 0.9, a.gerador.Params.TopP, 1e-9)
}

func TestGerarDescricao(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))

	a.gerador.Texto = "Um Porsche para poucos."
	texto, err := c.GerarDescricao(ctx, "Porsche", "911", 2022)
	require.NoError(t, err)
	require.Equal(t, "Um Porsche para poucos.", texto)

	a.gerador.Texto = "  "
	texto, err = c.GerarDescricao(ctx, "Porsche", "911", 2022)
	require.NoError(t, err)
	require.Equal(t, services.FallbackVazio, texto)

	_, err = c.GerarDescricao(ctx, "", "911", 2022)
	require.ErrorIs(t, err, services.ErrMarcaModeloObrigatorios)
	require.Equal(t, 2, a.gerador.Chamadas)
}

func TestGerarDescricaoRecusaChamadaConcorrente(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	a.gerador.Texto = "Texto"
	a.gerador.Bloquear = make(chan struct{})
	a.gerador.Entrou = make(chan struct{}, 1)
	c := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))

	type resultado struct {
		texto string
		err   error
	}
	fim := make(chan resultado, 1)
	go func() {
		texto, err := c.GerarDescricao(ctx, "BMW", "M4", 2023)
		fim <- resultado{texto, err}
	}()

	<-a.gerador.Entrou
	require.True(t, c.Estado().GerandoDescricao)
	_, err := c.GerarDescricao(ctx, "BMW", "M4", 2023)
	require.ErrorIs(t, err, services.ErrGeracaoEmAndamento)

	close(a.gerador.Bloquear)
	r := <-fim
	require.NoError(t, r.err)
	require.Equal(t, "Texto", r.texto)
	require.False(t, c.Estado().GerandoDescricao)
}

func TestSessaoExpiradaLimpaLeadsEMantemTelaRestrita(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	_, err := a.leads.Inserir(ctx, leadVenda())
	require.NoError(t, err)
	c := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	require.Len(t, c.Estado().Leads, 1)

	a.relogio.Advance(time.Hour)
	c.VerificarSessao(ctx)

	e := c.Estado()
	require.False(t, e.Auth.Autenticado)
	require.Empty(t, e.Leads)
	require.Equal(t, models.ViewAdminDashboard, e.View)
	require.True(t, e.Restrito)
}

func TestSaidaAnunciadaPeloServicoDeSessao(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	c := a.coordenador()
	outro := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	require.True(t, outro.Entrar(ctx, emailAdmin, senhaAdmin))

	require.NoError(t, a.auth.Sair(ctx, c.Token()))

	require.False(t, c.Estado().Auth.Autenticado)
	require.True(t, outro.Estado().Auth.Autenticado)
}

func TestLeituraDeLeadsAntigaEDescartada(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	_, err := a.leads.Inserir(ctx, leadVenda())
	require.NoError(t, err)
	c := a.coordenador()

	// Na primeira leitura, o lojista sai e entra de novo antes da resposta
	// chegar, e um lead novo é gravado nesse meio tempo.
	disparado := false
	a.leads.SetAntesDeResponder(func() {
		if disparado {
			return
		}
		disparado = true
		c.Sair(ctx)
		_, err := a.leads.Inserir(ctx, leadVenda())
		require.NoError(t, err)
		require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	})

	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	require.Len(t, c.Estado().Leads, 2)
}

func TestEncerrarCancelaInscricao(t *testing.T) {
	a := novoAmbiente(t)
	c := a.coordenador()
	require.Equal(t, 1, a.auth.Ouvintes())
	c.Encerrar()
	require.Equal(t, 0, a.auth.Ouvintes())
}

func TestSessaoVencidaBloqueiaOperacoesDoPainel(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	_, err := a.leads.Inserir(ctx, leadVenda())
	require.NoError(t, err)
	c := a.coordenador()
	c.Inicializar(ctx, "")
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	require.True(t, c.Autenticado(ctx))

	a.relogio.Advance(2 * time.Hour)

	_, err = c.Leads(ctx)
	require.ErrorIs(t, err, services.ErrNaoAutorizado)
	_, err = c.AdicionarVeiculo(ctx, models.NovoVeiculo{Marca: "Audi", Modelo: "RS6", Ano: 2024, Preco: decimal.NewFromInt(650000)})
	require.ErrorIs(t, err, services.ErrNaoAutorizado)
	_, err = c.AtualizarVeiculo(ctx, estoque()[0])
	require.ErrorIs(t, err, services.ErrNaoAutorizado)
	require.ErrorIs(t, c.ExcluirVeiculo(ctx, "1"), services.ErrNaoAutorizado)
	_, err = c.GerarDescricao(ctx, "Audi", "RS6", 2024)
	require.ErrorIs(t, err, services.ErrNaoAutorizado)
	require.False(t, c.Autenticado(ctx))

	require.Equal(t, estoque(), a.veiculos.Conteudo())
	e := c.Estado()
	require.False(t, e.Auth.Autenticado)
	require.Empty(t, e.Leads)
}

func TestCarregandoEnquantoInicializa(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	c := a.coordenador()
	entrou, liberar := a.veiculos.Segurar()
	defer liberar()

	fim := make(chan struct{})
	go func() {
		c.Inicializar(ctx, "")
		close(fim)
	}()

	<-entrou
	e := c.Estado()
	require.True(t, e.Carregando)
	require.Empty(t, e.Veiculos)

	liberar()
	<-fim
	e = c.Estado()
	require.False(t, e.Carregando)
	require.Len(t, e.Veiculos, 2)
}

func TestTrocaDeSessaoNaoMantemLeadsDaAnterior(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	_, err := a.leads.Inserir(ctx, leadVenda())
	require.NoError(t, err)
	c := a.coordenador()
	require.True(t, c.Entrar(ctx, emailAdmin, senhaAdmin))
	require.Len(t, c.Estado().Leads, 1)

	nova, err := a.auth.Entrar(ctx, emailAdmin, senhaAdmin)
	require.NoError(t, err)
	a.leads.SetFalha(true)

	c.Inicializar(ctx, nova.Token)

	e := c.Estado()
	require.True(t, e.Auth.Autenticado)
	require.Equal(t, nova.Token, c.Token())
	require.Empty(t, e.Leads)
}
