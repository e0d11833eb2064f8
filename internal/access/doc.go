// Package access реализует ядро контроля доступа.
//
// Запрос проходит цепочку, которая прерывается на первом отказе:
//
//	Authorization: Bearer <token>
//	  -> Resolver          (токен -> актуальная учётная запись)
//	  -> RoleGate          (точное совпадение роли, без иерархии)
//	  -> SubscriptionGate  (ленивое истечение пробного периода, затем проверка подписки)
//
// Pipeline собирается один раз на защищённую операцию и возвращает Decision
// с учётной записью, которую обработчик получает явным параметром.
//
// Единственная запись, которую делает ядро, — сброс is_subscription_active
// при обнаружении истёкшего пробного периода. Запись выполняется до принятия
// решения, поэтому запрос, обнаруживший истечение, сам получает отказ.
package access
