package kakao

import (
	"go.uber.org/fx"
)

// Module provides the callback client.
var Module = fx.Module("kakao",
	fx.Provide(NewCallbackClient),
)
