package dgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/dgo/v230"
	"github.com/dgraph-io/dgo/v230/protos/api"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/metrics"
)

// GRPCOptions configures a GRPCExecutor.
type GRPCOptions struct {
	Addr        string
	AuthToken   string
	DialOptions []grpc.DialOption
	Logger      *zap.Logger
}

// GRPCExecutor runs DQL through dgo. Responses are wrapped into the same
// {data, extensions} envelope the HTTP API returns.
type GRPCExecutor struct {
	conn   *grpc.ClientConn
	dg     *dgo.Dgraph
	token  string
	logger *zap.Logger
}

// NewGRPCExecutor dials the alpha. Without DialOptions the connection is
// plaintext.
func NewGRPCExecutor(opts GRPCOptions) (*GRPCExecutor, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("dgraph grpc address is empty")
	}
	dialOpts := opts.DialOptions
	if len(dialOpts) == 0 {
		dialOpts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.Dial(opts.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial dgraph %s: %w", opts.Addr, err)
	}
	return newGRPCExecutor(conn, opts.AuthToken, opts.Logger), nil
}

func newGRPCExecutor(conn *grpc.ClientConn, token string, logger *zap.Logger) *GRPCExecutor {
	return &GRPCExecutor{
		conn:   conn,
		dg:     dgo.NewDgraphClient(api.NewDgraphClient(conn)),
		token:  token,
		logger: logging.OrNop(logger),
	}
}

// Close releases the connection.
func (e *GRPCExecutor) Close() error {
	return e.conn.Close()
}

// ExecuteDQL runs a query in a read-only transaction, or a mutation in a
// transaction committed immediately. Mutations take the /mutate body format
// and are unwrapped into SetJson/DeleteJson or SetNquads/DelNquads.
// Variables are only supported on queries.
func (e *GRPCExecutor) ExecuteDQL(ctx context.Context, stmt string, vars map[string]string, isMutation bool) (out []byte, err error) {
	op := "dql_query"
	if isMutation {
		op = "dql_mutate"
	}
	done := metrics.TimeExec(op)
	defer func() { done(err == nil) }()

	if e.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "auth-token", e.token)
	}
	if isMutation {
		return e.mutate(ctx, stmt, vars)
	}

	txn := e.dg.NewReadOnlyTxn()
	defer func() { _ = txn.Discard(ctx) }()
	resp, err := txn.QueryWithVars(ctx, stmt, vars)
	if err != nil {
		return nil, fmt.Errorf("dgraph %s: %w", op, err)
	}
	e.logger.Debug("dgraph grpc query", zap.Uint64("total_ns", resp.GetLatency().GetTotalNs()))

	data := json.RawMessage(resp.GetJson())
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return json.Marshal(grpcEnvelope{Data: data, Extensions: extensions(resp)})
}

func (e *GRPCExecutor) mutate(ctx context.Context, stmt string, vars map[string]string) ([]byte, error) {
	if len(vars) > 0 {
		return nil, fmt.Errorf("variables are not supported on mutations")
	}
	query, mus, err := parseMutation(stmt)
	if err != nil {
		return nil, err
	}

	txn := e.dg.NewTxn()
	defer func() { _ = txn.Discard(ctx) }()
	resp, err := txn.Do(ctx, &api.Request{Query: query, Mutations: mus, CommitNow: true})
	if err != nil {
		return nil, fmt.Errorf("dgraph dql_mutate: %w", err)
	}

	data := map[string]any{
		"code":    "Success",
		"message": "Done",
		"uids":    resp.GetUids(),
	}
	if js := resp.GetJson(); len(js) > 0 {
		data["queries"] = json.RawMessage(js)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(grpcEnvelope{Data: raw, Extensions: extensions(resp)})
}

type grpcEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// extensions mirrors the HTTP API's server_latency and txn blocks.
func extensions(resp *api.Response) map[string]any {
	ext := map[string]any{}
	if l := resp.GetLatency(); l != nil {
		ext["server_latency"] = map[string]uint64{
			"parsing_ns":    l.GetParsingNs(),
			"processing_ns": l.GetProcessingNs(),
			"encoding_ns":   l.GetEncodingNs(),
			"total_ns":      l.GetTotalNs(),
		}
	}
	if t := resp.GetTxn(); t != nil {
		ext["txn"] = map[string]any{
			"start_ts":  t.GetStartTs(),
			"commit_ts": t.GetCommitTs(),
		}
	}
	return ext
}
