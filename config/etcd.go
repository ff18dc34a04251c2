package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// EtcdOptions etcd 配置选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

// EtcdSource etcd 配置源
// 键 <prefix>/handlers/console/level 对应配置路径 handlers:console:level，
// 值依次尝试按 JSON、YAML 解析，失败时作为字符串
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	defer cli.Close()

	timeout := s.Options.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}

	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get config from etcd: %w", err)
	}

	pairs := make(map[string][]byte, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		pairs[string(kv.Key)] = kv.Value
	}
	return decodeEtcd(s.Options.Prefix, pairs), nil
}

// decodeEtcd 把 etcd 键值对还原为嵌套配置
func decodeEtcd(prefix string, pairs map[string][]byte) map[string]any {
	result := make(map[string]any)
	for key, raw := range pairs {
		if prefix != "" {
			key = strings.TrimPrefix(key, prefix)
		}
		key = strings.Trim(key, "/")
		if key == "" {
			continue
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			if err := yaml.Unmarshal(raw, &value); err != nil {
				value = string(raw)
			}
		}
		setNestedValue(result, strings.Split(key, "/"), value)
	}
	return result
}
