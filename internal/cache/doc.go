// 版权所有 2024 AgentScope Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，用于缓存已内联的远程媒体。

# 概述

本包封装 go-redis 客户端，为 llm/media 的 CachedResolver 提供统一的
缓存读写接口。Manager 负责连接生命周期管理，包括初始化、健康检查与优雅关闭。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端与连接池配置，
    提供 Get/Set/Delete/Ping 等基础操作，以及 GetJSON/SetJSON 便捷序列化方法。
  - Config：缓存配置，包含地址、密码、键前缀、连接池大小、默认 TTL、
    单值大小上限与健康检查间隔等参数。

# 主要能力

  - 键值读写：支持字符串与 JSON 两种模式的缓存存取，键统一加前缀。
  - 大小保护：超过 MaxValueBytes 的值返回 ErrValueTooLarge，不写入 Redis。
  - 健康检查：后台定时 Ping 检测，异常时通过 zap 日志告警，Close 后退出。
  - 错误语义：提供 ErrCacheMiss / ErrClosed 哨兵错误与 IsCacheMiss 判断函数。
*/
package cache
