package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gorpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/hbmartin/webview-ipc/pkg/host"
	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/rpc"
)

// ServiceName is the JSON-RPC service prefix: methods are Bridge.Call and
// Bridge.Keys.
const ServiceName = "Bridge"

// CallArgs are the params of Bridge.Call.
type CallArgs struct {
	Key    string `json:"key"`
	Params []any  `json:"params"`

	// ViewID, when set, is passed to the handler as the request context.
	ViewID string `json:"viewId,omitempty"`
}

// CallReply is the result of Bridge.Call.
type CallReply struct {
	Value any `json:"value"`
}

// KeysArgs are the params of Bridge.Keys.
type KeysArgs struct{}

// KeysReply is the result of Bridge.Keys.
type KeysReply struct {
	Keys []string `json:"keys"`
}

// Service invokes a provider's RPC handlers on behalf of JSON-RPC callers.
type Service struct {
	provider *host.Provider
	viewType string
	logger   *slog.Logger
}

func newGateway(provider *host.Provider, logger *slog.Logger) (http.Handler, error) {
	s := gorpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	svc := &Service{
		provider: provider,
		viewType: provider.Registry().ViewType(),
		logger:   logger,
	}
	if err := s.RegisterService(svc, ServiceName); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) dispatcher() (*rpc.Dispatcher, error) {
	d := s.provider.RPC()
	if d == nil {
		return nil, &json2.Error{Code: json2.E_SERVER, Message: ErrNoDispatcher.Error()}
	}
	return d, nil
}

// Call runs the handler named by args.Key.
func (s *Service) Call(r *http.Request, args *CallArgs, reply *CallReply) error {
	d, err := s.dispatcher()
	if err != nil {
		return err
	}
	if args.Key == "" {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "key is required"}
	}

	params := args.Params
	if params == nil {
		params = []any{}
	}
	var rc *protocol.RequestContext
	if args.ViewID != "" {
		rc = &protocol.RequestContext{
			ViewID:    args.ViewID,
			ViewType:  s.viewType,
			Timestamp: time.Now().UnixMilli(),
		}
	}

	req := protocol.NewRequest(protocol.NewRequestID(), args.Key, params, rc)
	value, err := d.Invoke(r.Context(), req)
	if err != nil {
		s.logger.Debug("json-rpc call failed", "key", args.Key, "error", err)
		var unknown *rpc.UnknownKeyError
		if errors.As(err, &unknown) {
			return &json2.Error{Code: json2.E_NO_METHOD, Message: err.Error()}
		}
		return &json2.Error{Code: json2.E_SERVER, Message: err.Error()}
	}

	plain, err := protocol.Clone(value)
	if err != nil {
		return &json2.Error{Code: json2.E_INTERNAL, Message: err.Error()}
	}
	reply.Value = plain
	return nil
}

// Keys lists the registered handler keys.
func (s *Service) Keys(_ *http.Request, _ *KeysArgs, reply *KeysReply) error {
	d, err := s.dispatcher()
	if err != nil {
		return err
	}
	reply.Keys = d.Keys()
	return nil
}
