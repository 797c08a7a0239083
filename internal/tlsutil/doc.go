// Package tlsutil 提供出站连接的 TLS 加固配置（TLS 1.2+，TLS 1.2 下仅 AEAD 密码套件），
// 以及 provider 与媒体下载共用的 http.Client。
package tlsutil
