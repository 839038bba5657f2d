package publish

import (
	"context"
	"net/rpc"
	"os/exec"

	goplugin "github.com/hashicorp/go-plugin"
)

// Handshake is used to handshake between host and publisher plugins.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ATELIER_PLUGIN_MAGIC_COOKIE",
	MagicCookieValue: "atelier-publisher",
}

// PluginName is the dispense key for publisher plugins.
const PluginName = "publisher"

// PublisherPlugin adapts a Publisher to go-plugin's net/rpc transport.
type PublisherPlugin struct {
	Impl Publisher
}

func (p *PublisherPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &publisherRPCServer{impl: p.Impl}, nil
}

func (p *PublisherPlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &publisherRPC{client: c}, nil
}

// publisherRPC is the host-side stub. The context does not cross the
// process boundary; cancellation falls back to killing the plugin.
type publisherRPC struct {
	client *rpc.Client
}

func (p *publisherRPC) Name() string {
	var resp string
	if err := p.client.Call("Plugin.Name", new(interface{}), &resp); err != nil {
		return "unknown"
	}
	return resp
}

func (p *publisherRPC) Accounts(ctx context.Context) ([]Account, error) {
	var resp []Account
	err := p.client.Call("Plugin.Accounts", new(interface{}), &resp)
	return resp, err
}

// PublishArgs is the wire form of a Publish call.
type PublishArgs struct {
	AccountID string
	Posts     []Post
}

func (p *publisherRPC) Publish(ctx context.Context, accountID string, posts []Post) error {
	var resp struct{}
	return p.client.Call("Plugin.Publish", PublishArgs{AccountID: accountID, Posts: posts}, &resp)
}

// publisherRPCServer runs inside the plugin process.
type publisherRPCServer struct {
	impl Publisher
}

func (s *publisherRPCServer) Name(args interface{}, resp *string) error {
	*resp = s.impl.Name()
	return nil
}

func (s *publisherRPCServer) Accounts(args interface{}, resp *[]Account) error {
	accounts, err := s.impl.Accounts(context.Background())
	if err != nil {
		return err
	}
	*resp = accounts
	return nil
}

func (s *publisherRPCServer) Publish(args PublishArgs, resp *struct{}) error {
	return s.impl.Publish(context.Background(), args.AccountID, args.Posts)
}

// LoadPlugin starts the publisher plugin binary at path and returns the
// connected Publisher plus a shutdown func.
func LoadPlugin(path string) (Publisher, func(), error) {
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			PluginName: &PublisherPlugin{},
		},
		Cmd: exec.Command(path), // #nosec G204
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, err
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return nil, nil, err
	}

	return raw.(Publisher), client.Kill, nil
}

// Serve runs impl as a publisher plugin. Call from a plugin binary's
// main.
func Serve(impl Publisher) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			PluginName: &PublisherPlugin{Impl: impl},
		},
	})
}
