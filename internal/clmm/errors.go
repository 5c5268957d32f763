package clmm

import "github.com/oraicore/clmm/internal/errkind"

func errTokensAreSame() *errkind.Error { return errkind.New(errkind.TokensAreSame) }
