package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// InterceptFields 提供策略/来源/方法字段，供请求拦截日志复用。
func InterceptFields(site, strategy, method, target, source string) logrus.Fields {
	return logrus.Fields{
		"site":     site,
		"strategy": strategy,
		"method":   method,
		"target":   target,
		"source":   source,
	}
}

// LifecycleFields 提供安装/激活阶段的命名空间上下文字段。
func LifecycleFields(action, namespace string) logrus.Fields {
	return logrus.Fields{
		"action":    action,
		"namespace": namespace,
	}
}
