package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rl-imports/internal/services"
)

func TestVisitantesReaproveitaCoordenador(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	v := services.NewVisitantes(10, time.Hour, a.coordenador, a.logger)

	c1 := v.Obter(ctx, "visitante-1", "")
	require.Len(t, c1.Estado().Veiculos, 2)
	require.Same(t, c1, v.Obter(ctx, "visitante-1", ""))
	require.NotSame(t, c1, v.Obter(ctx, "visitante-2", ""))
	require.Equal(t, 2, v.Quantidade())
}

func TestVisitanteNovoUsaTokenDaSessao(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	sess, err := a.auth.Entrar(ctx, emailAdmin, senhaAdmin)
	require.NoError(t, err)
	v := services.NewVisitantes(10, time.Hour, a.coordenador, a.logger)

	c := v.Obter(ctx, "visitante-1", sess.Token)
	require.True(t, c.Estado().Auth.Autenticado)
	require.Equal(t, sess.Token, c.Token())
}

func TestVisitanteDespejadoEncerraCoordenador(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	v := services.NewVisitantes(1, time.Hour, a.coordenador, a.logger)

	v.Obter(ctx, "visitante-1", "")
	require.Equal(t, 1, a.auth.Ouvintes())

	c2 := v.Obter(ctx, "visitante-2", "")
	require.Equal(t, 1, v.Quantidade())
	require.Equal(t, 1, a.auth.Ouvintes())

	require.NotSame(t, c2, v.Obter(ctx, "visitante-1", ""))
	require.Equal(t, 1, v.Quantidade())
	require.Equal(t, 1, a.auth.Ouvintes())
}

func TestVisitanteVencidoNaoDeixaInscricaoParaTras(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t)
	v := services.NewVisitantes(10, 50*time.Millisecond, a.coordenador, a.logger)

	for i := 0; i < 5; i++ {
		c1 := v.Obter(ctx, "visitante-1", "")
		require.Equal(t, 1, a.auth.Ouvintes())

		time.Sleep(70 * time.Millisecond)

		c2 := v.Obter(ctx, "visitante-1", "")
		require.NotSame(t, c1, c2)
		require.Equal(t, 1, a.auth.Ouvintes())
	}
}

func TestVisitanteConcorrenteVeCarregamento(t *testing.T) {
	ctx := context.Background()
	a := novoAmbiente(t, estoque()...)
	v := services.NewVisitantes(10, time.Hour, a.coordenador, a.logger)
	entrou, liberar := a.veiculos.Segurar()
	defer liberar()

	primeiro := make(chan *services.Coordenador, 1)
	go func() {
		primeiro <- v.Obter(ctx, "visitante-1", "")
	}()

	<-entrou
	c := v.Obter(ctx, "visitante-1", "")
	e := c.Estado()
	require.True(t, e.Carregando)
	require.Empty(t, e.Veiculos)

	liberar()
	require.Same(t, c, <-primeiro)
	e = c.Estado()
	require.False(t, e.Carregando)
	require.Len(t, e.Veiculos, 2)
}
