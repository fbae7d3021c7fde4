package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router wires modules from these singletons. Optional backends stay nil when
// not configured and every consumer treats nil as "disabled".

var (
	cfg         *config.Config
	logger      *logrus.Logger
	userRepo    repository.UserRepository
	redisClient *redis.Client
	gcsClient   *storage.Client

	jwtManager *helpers.JWTManager

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetUserRepository(r repository.UserRepository) { userRepo = r }
func GetUserRepository() repository.UserRepository  { return userRepo }
func SetRabbitPub(p *helpers.RabbitPublisher)       { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher        { return rabbitPub }
func SetES(c *elasticsearch.Client)                 { esClient = c }
func GetES() *elasticsearch.Client                  { return esClient }
