package app

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jun/watchlist/internal/auth"
	"github.com/jun/watchlist/internal/config"
	"github.com/jun/watchlist/internal/handler"
	"github.com/jun/watchlist/internal/logging"
	"github.com/jun/watchlist/internal/secret"
	"github.com/jun/watchlist/internal/store"
	"github.com/jun/watchlist/internal/watchlist"
)

// CorrelationHeader carries the request id between client, router and logs.
const CorrelationHeader = "X-Correlation-Id"

const devJWTSecret = "default-dev-secret"

// Route resources as API Gateway reports them in req.Resource.
const (
	resourceList       = "/watchList"
	resourceItem       = "/watchList/{itemId}"
	resourceAttachment = "/watchList/{itemId}/attachment"
)

type handlerFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// App holds the dependencies for the Lambda function.
type App struct {
	routes       map[string]map[string]handlerFunc
	logger       zerolog.Logger
	corsOrigin   string
	originSecret string
}

// Options configures the router around a WatchListHandler.
type Options struct {
	Logger zerolog.Logger
	// CORSAllowOrigin defaults to "*".
	CORSAllowOrigin string
	// OriginSecret enables the X-Origin-Verify check when non-empty.
	OriginSecret string
}

// NewApp builds the router for h.
func NewApp(h *handler.WatchListHandler, opts Options) *App {
	if opts.CORSAllowOrigin == "" {
		opts.CORSAllowOrigin = "*"
	}
	return &App{
		routes: map[string]map[string]handlerFunc{
			resourceList: {
				http.MethodGet:  h.ListItems,
				http.MethodPost: h.CreateItem,
			},
			resourceItem: {
				http.MethodGet:    h.GetItem,
				http.MethodPatch:  h.UpdateItem,
				http.MethodDelete: h.DeleteItem,
			},
			resourceAttachment: {
				http.MethodPost: h.GenerateUploadURL,
			},
		},
		logger:       opts.Logger,
		corsOrigin:   opts.CORSAllowOrigin,
		originSecret: opts.OriginSecret,
	}
}

// New initializes the application dependencies from the environment.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Configure(cfg.LogLevel, cfg.LogFormat, nil)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	resolver, err := secret.New(cfg.SecretBackend, awsCfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("backend", cfg.SecretBackend).Msg("secret resolver ready")

	verifier, err := newVerifier(ctx, cfg, resolver, logger)
	if err != nil {
		return nil, err
	}

	var originSecret string
	if cfg.APIGatewaySecretParam != "" && !cfg.DevMode {
		originSecret, err = resolver.GetSecret(ctx, cfg.APIGatewaySecretParam)
		if err != nil {
			return nil, fmt.Errorf("resolve api gateway secret: %w", err)
		}
	}

	table := newTable(cfg, awsCfg)
	logger.Info().Str("backend", cfg.StoreBackend).Str("table", cfg.TableName).Msg("item table ready")

	signer, err := newSigner(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("backend", cfg.ObjectBackend).Str("bucket", cfg.Bucket).Msg("attachment signer ready")

	items := store.NewItemStore(table, signer, store.Options{
		Bucket:        cfg.Bucket,
		Domain:        cfg.AttachmentDomain,
		URLExpiration: cfg.URLExpiration,
	})
	svc := watchlist.NewService(items, verifier)

	return NewApp(handler.NewWatchListHandler(svc), Options{
		Logger:          logger,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		OriginSecret:    originSecret,
	}), nil
}

func newVerifier(ctx context.Context, cfg *config.Config, resolver secret.Resolver, logger zerolog.Logger) (*auth.Verifier, error) {
	opts := []auth.Option{auth.WithIssuer(cfg.Auth.Issuer), auth.WithAudience(cfg.Auth.Audience)}

	if cfg.Auth.JWKSURL != "" {
		v, err := auth.NewJWKSVerifier(ctx, cfg.Auth.JWKSURL, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("jwks", cfg.Auth.JWKSURL).Msg("verifying tokens against JWKS")
		return v, nil
	}

	jwtSecret, err := resolver.GetSecret(ctx, cfg.Auth.JWTSecretParam)
	if err != nil {
		if !cfg.DevMode {
			return nil, fmt.Errorf("resolve jwt secret: %w", err)
		}
		logger.Warn().Err(err).Msg("jwt secret not set, using development secret")
		jwtSecret = devJWTSecret
	}
	return auth.NewHMACVerifier(jwtSecret, opts...), nil
}

func newTable(cfg *config.Config, awsCfg aws.Config) store.Table {
	if cfg.StoreBackend == "memory" {
		return store.NewMemoryTable()
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
	return store.NewDynamoTable(client, cfg.TableName, cfg.UserIDIndex)
}

func newSigner(cfg *config.Config, awsCfg aws.Config) (store.Signer, error) {
	if cfg.ObjectBackend == "minio" {
		return store.NewMinioSigner(store.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Region:    awsCfg.Region,
		}, cfg.Bucket)
	}
	return store.NewS3Signer(s3.NewPresignClient(s3.NewFromConfig(awsCfg)), cfg.Bucket), nil
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	correlationID := header(req.Headers, CorrelationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := app.logger.With().Str("correlationId", correlationID).Logger()
	ctx = logger.WithContext(ctx)

	resp := app.dispatch(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers[CorrelationHeader] = correlationID
	app.addCORS(resp.Headers)

	logger.Info().
		Str("method", req.HTTPMethod).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")

	return resp, nil
}

func (app *App) dispatch(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	if app.originSecret != "" {
		got := header(req.Headers, "X-Origin-Verify")
		if subtle.ConstantTimeCompare([]byte(got), []byte(app.originSecret)) != 1 {
			zerolog.Ctx(ctx).Warn().Msg("missing or invalid X-Origin-Verify header")
			return handler.JSONError(http.StatusForbidden, "Forbidden")
		}
	}

	resource := req.Resource
	if _, known := app.routes[resource]; !known {
		var itemID string
		resource, itemID = matchPath(req.Path)
		if itemID != "" {
			if req.PathParameters == nil {
				req.PathParameters = make(map[string]string)
			}
			req.PathParameters["itemId"] = itemID
		}
	}

	methods, ok := app.routes[resource]
	if !ok {
		return handler.JSONError(http.StatusNotFound, fmt.Sprintf("Not Found: %s %s", req.HTTPMethod, req.Path))
	}
	fn, ok := methods[req.HTTPMethod]
	if !ok {
		return handler.JSONError(http.StatusNotFound, fmt.Sprintf("Not Found: %s %s", req.HTTPMethod, req.Path))
	}

	resp, err := fn(ctx, req)
	if err != nil {
		return handler.ErrorResponse(ctx, err)
	}
	return resp
}

// matchPath resolves a raw path to its route resource. Anything before the
// watchList segment (an "/api" proxy prefix or a stage name) is ignored.
func matchPath(path string) (resource, itemID string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	start := -1
	for i, p := range parts {
		if p == "watchList" {
			start = i
			break
		}
	}
	if start < 0 {
		return "", ""
	}

	parts = parts[start+1:]
	switch {
	case len(parts) == 0:
		return resourceList, ""
	case len(parts) == 1 && parts[0] != "":
		return resourceItem, parts[0]
	case len(parts) == 2 && parts[0] != "" && parts[1] == "attachment":
		return resourceAttachment, parts[0]
	}
	return "", ""
}

func (app *App) addCORS(h map[string]string) {
	h["Access-Control-Allow-Origin"] = app.corsOrigin
	h["Access-Control-Allow-Methods"] = "GET,POST,PATCH,DELETE,OPTIONS"
	h["Access-Control-Allow-Headers"] = "Content-Type,Authorization,X-Correlation-Id"
	if app.corsOrigin != "*" {
		h["Access-Control-Allow-Credentials"] = "true"
	}
}

func header(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
